package tilestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/renameio"
	"github.com/google/uuid"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// FileStore is the on disk tile store: a fixed header followed by an append
// only chain of page and metadata records. It is not safe for concurrent use.
//
// Stores are written once, by a single writer, and never modified in place.
// A created store is written to a temporary file that replaces path only when
// it is closed. OpenAppend exists so a finished store can take a further
// metadata record.
type FileStore struct {
	log      logger.Logger
	path     string
	f        *os.File
	pending  *renameio.PendingFile
	header   Header
	writable bool
	closed   bool

	codec *pageCodec

	// end is the offset at which the next record will be written and last is
	// the offset of the most recent record.
	end  uint64
	last uint64

	stats    Stats
	metadata *Metadata
}

type CreateOptions struct {
	StoreID  uuid.UUID
	SourceID uuid.UUID
}

type CreateOption func(*CreateOptions)

// WithSourceID records the id of the store the new store is derived from.
func WithSourceID(id uuid.UUID) CreateOption {
	return func(opts *CreateOptions) {
		opts.SourceID = id
	}
}

func WithStoreID(id uuid.UUID) CreateOption {
	return func(opts *CreateOptions) {
		opts.StoreID = id
	}
}

// Create starts a new store for writing. Nothing appears at path until Close,
// which atomically replaces any existing file there.
func Create(log logger.Logger, path string, params Params, opts ...CreateOption) (*FileStore, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	options := CreateOptions{StoreID: uuid.New()}
	for _, opt := range opts {
		opt(&options)
	}

	pending, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return nil, err
	}
	f := pending.File
	s := &FileStore{
		log:      log,
		path:     path,
		f:        f,
		pending:  pending,
		writable: true,
		header: Header{
			Version:  HeaderCurrentVersion,
			Params:   params,
			StoreID:  options.StoreID,
			SourceID: options.SourceID,
		},
		end:   HeaderSize,
		last:  NoOffset,
		stats: NewStats(params.Channels),
	}
	if s.codec, err = newPageCodec(params); err != nil {
		pending.Cleanup()
		return nil, err
	}
	if err = f.Chmod(0o644); err != nil {
		s.abandon()
		return nil, err
	}
	if _, err = f.WriteAt(s.header.MarshalBinary(), 0); err != nil {
		s.abandon()
		return nil, err
	}
	return s, nil
}

// OpenRead opens an existing store for reading.
func OpenRead(log logger.Logger, path string) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return open(log, path, f, false)
}

// OpenAppend opens a finished store so that further records can be appended.
// The store must scan cleanly to its end.
func OpenAppend(log logger.Logger, path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	s, err := open(log, path, f, true)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		s.abandon()
		return nil, err
	}
	if uint64(info.Size()) != s.end {
		s.abandon()
		return nil, fmt.Errorf("%w: %s has %d trailing bytes", ErrRecordHeader, path, uint64(info.Size())-s.end)
	}
	return s, nil
}

func open(log logger.Logger, path string, f *os.File, writable bool) (*FileStore, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, HeaderSize), b); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrHeaderMissing, path, err)
	}
	h, err := DecodeHeader(b)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s := &FileStore{
		log:      log,
		path:     path,
		f:        f,
		header:   h,
		writable: writable,
		stats:    NewStats(h.Params.Channels),
	}
	if s.codec, err = newPageCodec(h.Params); err != nil {
		f.Close()
		return nil, err
	}
	if _, err = s.ScanCatalog(); err != nil {
		s.abandon()
		return nil, err
	}
	if s.metadata != nil {
		s.header.Params.Description = s.metadata.Description
		s.stats.Pages = s.metadata.Pages
		if len(s.metadata.Min) == h.Params.Channels && s.metadata.Pages > 0 {
			copy(s.stats.Min, s.metadata.Min)
			copy(s.stats.Max, s.metadata.Max)
		}
	}
	return s, nil
}

func (s *FileStore) Path() string        { return s.path }
func (s *FileStore) Params() Params      { return s.header.Params }
func (s *FileStore) ID() uuid.UUID       { return s.header.StoreID }
func (s *FileStore) SourceID() uuid.UUID { return s.header.SourceID }

// LastOffset returns the offset of the most recent record, the prior for the
// next Append.
func (s *FileStore) LastOffset() uint64 { return s.last }

// Metadata returns the most recent metadata record.
func (s *FileStore) Metadata() (Metadata, error) {
	if s.metadata == nil {
		return Metadata{}, ErrNoMetadata
	}
	return *s.metadata, nil
}

// SetDescription replaces the description written by Close.
func (s *FileStore) SetDescription(description string) {
	s.header.Params.Description = description
}

// ScanCatalog walks the record chain from the header. A damaged record header
// ends the walk, the records that follow it are treated as absent. The
// returned entries are in storage order and are not de-duplicated.
func (s *FileStore) ScanCatalog() ([]Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	info, err := s.f.Stat()
	if err != nil {
		return nil, err
	}
	size := uint64(info.Size())

	var entries []Entry
	b := make([]byte, RecordHeaderSize)
	prior := NoOffset
	offset := uint64(HeaderSize)
	for offset < size {
		if size-offset < RecordHeaderSize {
			s.log.Infof("%s: %d trailing bytes at %d ignored", s.path, size-offset, offset)
			break
		}
		if _, err := s.f.ReadAt(b, int64(offset)); err != nil {
			return nil, err
		}
		r, err := DecodeRecordHeader(b)
		if err == nil && r.Prior != prior {
			err = fmt.Errorf("%w: prior %d, want %d", ErrRecordHeader, r.Prior, prior)
		}
		if err == nil && offset+RecordHeaderSize+uint64(r.Len) > size {
			err = fmt.Errorf("%w: payload of %d bytes overruns the store", ErrRecordHeader, r.Len)
		}
		if err != nil {
			s.log.Infof("%s: scan stopped at offset %d: %v", s.path, offset, err)
			break
		}

		switch r.Type {
		case RecordTypePage:
			entries = append(entries, Entry{Address: r.Address, Offset: offset})
		case RecordTypeMetadata:
			if m, err := s.readMetadata(offset); err != nil {
				s.log.Infof("%s: metadata at %d ignored: %v", s.path, offset, err)
			} else {
				s.metadata = &m
			}
		}
		prior = offset
		offset += RecordHeaderSize + uint64(r.Len)
	}
	s.end = offset
	s.last = prior
	return entries, nil
}

func (s *FileStore) readRecord(offset uint64, want RecordType) (RecordHeader, []byte, error) {
	if offset < HeaderSize {
		return RecordHeader{}, nil, fmt.Errorf("%w: %d", ErrOffsetInvalid, offset)
	}
	b := make([]byte, RecordHeaderSize)
	if _, err := s.f.ReadAt(b, int64(offset)); err != nil {
		return RecordHeader{}, nil, fmt.Errorf("%w: %d: %v", ErrOffsetInvalid, offset, err)
	}
	r, err := DecodeRecordHeader(b)
	if err != nil {
		return r, nil, err
	}
	if r.Type != want {
		return r, nil, fmt.Errorf("%w: %d at offset %d", ErrRecordType, r.Type, offset)
	}
	payload := make([]byte, r.Len)
	if _, err := s.f.ReadAt(payload, int64(offset+RecordHeaderSize)); err != nil {
		return r, nil, fmt.Errorf("%w: %v", ErrCorruptPage, err)
	}
	if checksum(payload) != r.Checksum {
		return r, nil, fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorruptPage, offset)
	}
	return r, payload, nil
}

func (s *FileStore) readMetadata(offset uint64) (Metadata, error) {
	_, payload, err := s.readRecord(offset, RecordTypeMetadata)
	if err != nil {
		return Metadata{}, err
	}
	return decodeMetadata(payload)
}

// ReadPage reads and decodes the page record at offset.
func (s *FileStore) ReadPage(offset uint64, page *Page) error {
	if s.closed {
		return ErrClosed
	}
	if err := page.fits(s.header.Params); err != nil {
		return err
	}
	_, payload, err := s.readRecord(offset, RecordTypePage)
	if err != nil {
		return err
	}
	return s.codec.decode(payload, page)
}

// Append writes page as the record for addr.
func (s *FileStore) Append(prior uint64, addr cubemap.Address, page *Page) (uint64, error) {
	if err := s.checkAppend(prior); err != nil {
		return NoOffset, err
	}
	if !cubemap.Valid(addr) {
		return NoOffset, fmt.Errorf("%w: %d", ErrAddressInvalid, addr)
	}
	if err := page.fits(s.header.Params); err != nil {
		return NoOffset, err
	}
	offset, err := s.appendRecord(RecordTypePage, addr, s.codec.encode(page))
	if err != nil {
		return NoOffset, err
	}
	s.stats.Add(page)
	return offset, nil
}

func (s *FileStore) checkAppend(prior uint64) error {
	if s.closed {
		return ErrClosed
	}
	if !s.writable {
		return ErrNotAppendable
	}
	if prior != s.last {
		return fmt.Errorf("%w: got %d, last %d", ErrChainBroken, prior, s.last)
	}
	return nil
}

func (s *FileStore) appendRecord(typ RecordType, addr cubemap.Address, payload []byte) (uint64, error) {
	r := RecordHeader{
		Type:     typ,
		Len:      uint32(len(payload)),
		Address:  addr,
		Prior:    s.last,
		Checksum: checksum(payload),
	}
	offset := s.end
	if _, err := s.f.WriteAt(r.MarshalBinary(), int64(offset)); err != nil {
		return NoOffset, err
	}
	if _, err := s.f.WriteAt(payload, int64(offset+RecordHeaderSize)); err != nil {
		return NoOffset, err
	}
	s.end = offset + RecordHeaderSize + uint64(len(payload))
	s.last = offset
	return offset, nil
}

// Close finalizes a writable store with a metadata record carrying the
// description and the per channel range of everything appended, then closes
// the file.
func (s *FileStore) Close() error {
	if s.closed {
		return nil
	}
	var err error
	if s.writable {
		m := s.stats.Metadata(s.header.Params.Description)
		var payload []byte
		if payload, err = encodeMetadata(m); err == nil {
			_, err = s.appendRecord(RecordTypeMetadata, 0, payload)
		}
		if err == nil {
			s.metadata = &m
		}
	}
	s.codec.Close()
	s.closed = true
	if s.pending != nil {
		if err == nil {
			err = s.pending.CloseAtomicallyReplace()
		}
		if err != nil {
			return errors.Join(err, s.pending.Cleanup())
		}
		return nil
	}
	if err == nil && s.writable {
		err = s.f.Sync()
	}
	return errors.Join(err, s.f.Close())
}

// abandon closes the file without writing anything further. A created store
// leaves nothing behind.
func (s *FileStore) abandon() {
	if s.codec != nil {
		s.codec.Close()
	}
	s.closed = true
	if s.pending != nil {
		if err := s.pending.Cleanup(); err != nil {
			s.log.Infof("%s: cleanup failed: %v", s.path, err)
		}
		return
	}
	s.f.Close()
}

// Discard closes a store that failed part way through being written and
// removes it. A created store that was never closed has not reached path, so
// only its temporary file goes. Partially written stores are never resumed.
func (s *FileStore) Discard() error {
	if s.pending != nil && !s.closed {
		s.codec.Close()
		s.closed = true
		return s.pending.Cleanup()
	}
	if !s.closed {
		s.abandon()
	}
	return os.Remove(s.path)
}
