package tilestore

import "errors"

var (
	ErrParamsInvalid  = errors.New("the store parameters are invalid")
	ErrParamsMismatch = errors.New("the paired stores disagree on tile size or channel count")
	ErrPageSize       = errors.New("the page buffer does not match the store parameters")
	ErrChainBroken    = errors.New("the prior offset does not match the last appended record")
	ErrNotAppendable  = errors.New("the store was not opened for appending")
	ErrClosed         = errors.New("the store is closed")
	ErrAddressInvalid = errors.New("the page address is out of range")
)

var (
	ErrHeaderMissing  = errors.New("the store header is missing or short")
	ErrHeaderBadMagic = errors.New("the store header has the wrong magic")
	ErrHeaderVersion  = errors.New("the store header version is not supported")
	ErrRecordHeader   = errors.New("the record header is invalid")
	ErrRecordType     = errors.New("the record type was not as expected")
	ErrCorruptPage    = errors.New("the page record is corrupt")
	ErrOffsetInvalid  = errors.New("the offset does not reference a record")
	ErrNoMetadata     = errors.New("the store has no metadata record")
)
