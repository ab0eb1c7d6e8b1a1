package tilestore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/forestrie/go-cubetiles/cubemap"
)

const (

	// Store header layout
	//
	// .     | magic | version | bits | flags | tile size | channels | store id | source id | reserved |
	// .     | 0   3 | 4     5 |  6   |   7   | 8      11 | 12    15 | 16    31 | 32     47 | 48    63 |
	// bytes |   4   |    2    |  1   |   1   |     4     |     4    |    16    |     16    |    16    |
	//
	// The source id records the store a derived store was produced from, it is
	// the nil uuid for stores produced from imagery.

	HeaderSize           = 64
	HeaderMagicEnd       = 4
	HeaderVersionFirst   = 4
	HeaderBitsByte       = 6
	HeaderFlagsByte      = 7
	HeaderTileSizeFirst  = 8
	HeaderChannelsFirst  = 12
	HeaderStoreIDFirst   = 16
	HeaderStoreIDEnd     = 32
	HeaderSourceIDFirst  = 32
	HeaderSourceIDEnd    = 48
	HeaderCurrentVersion = uint16(1)

	FlagSigned = 1

	// Record header layout
	//
	// .     | type | reserved | payload len | address | prior offset | crc32 | reserved |
	// .     |  0   | 1      3 | 4         7 | 8    15 | 16        23 | 24 27 | 28    31 |
	// bytes |  1   |    3     |      4      |    8    |       8      |   4   |    4     |

	RecordHeaderSize     = 32
	RecordLenFirst       = 4
	RecordAddressFirst   = 8
	RecordPriorFirst     = 16
	RecordChecksumFirst  = 24
	MaxRecordPayloadSize = 1 << 30
)

var headerMagic = [4]byte{'S', 'C', 'M', 'T'}

type RecordType uint8

const (
	RecordTypeInvalid RecordType = iota
	RecordTypePage
	RecordTypeMetadata
)

// Header is the fixed store header.
type Header struct {
	Version  uint16
	Params   Params
	StoreID  uuid.UUID
	SourceID uuid.UUID
}

func (h Header) MarshalBinary() []byte {
	b := make([]byte, HeaderSize)
	copy(b[:HeaderMagicEnd], headerMagic[:])
	binary.BigEndian.PutUint16(b[HeaderVersionFirst:], h.Version)
	b[HeaderBitsByte] = byte(h.Params.Bits)
	if h.Params.Signed {
		b[HeaderFlagsByte] |= FlagSigned
	}
	binary.BigEndian.PutUint32(b[HeaderTileSizeFirst:], uint32(h.Params.TileSize))
	binary.BigEndian.PutUint32(b[HeaderChannelsFirst:], uint32(h.Params.Channels))
	copy(b[HeaderStoreIDFirst:HeaderStoreIDEnd], h.StoreID[:])
	copy(b[HeaderSourceIDFirst:HeaderSourceIDEnd], h.SourceID[:])
	return b
}

func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrHeaderMissing
	}
	if [4]byte(b[:HeaderMagicEnd]) != headerMagic {
		return h, ErrHeaderBadMagic
	}
	h.Version = binary.BigEndian.Uint16(b[HeaderVersionFirst:])
	if h.Version != HeaderCurrentVersion {
		return h, fmt.Errorf("%w: %d", ErrHeaderVersion, h.Version)
	}
	h.Params.Bits = int(b[HeaderBitsByte])
	h.Params.Signed = b[HeaderFlagsByte]&FlagSigned != 0
	h.Params.TileSize = int(binary.BigEndian.Uint32(b[HeaderTileSizeFirst:]))
	h.Params.Channels = int(binary.BigEndian.Uint32(b[HeaderChannelsFirst:]))
	copy(h.StoreID[:], b[HeaderStoreIDFirst:HeaderStoreIDEnd])
	copy(h.SourceID[:], b[HeaderSourceIDFirst:HeaderSourceIDEnd])
	return h, h.Params.Validate()
}

// RecordHeader precedes every record payload.
type RecordHeader struct {
	Type     RecordType
	Len      uint32
	Address  cubemap.Address
	Prior    uint64
	Checksum uint32
}

func (r RecordHeader) MarshalBinary() []byte {
	b := make([]byte, RecordHeaderSize)
	b[0] = byte(r.Type)
	binary.BigEndian.PutUint32(b[RecordLenFirst:], r.Len)
	binary.BigEndian.PutUint64(b[RecordAddressFirst:], uint64(r.Address))
	binary.BigEndian.PutUint64(b[RecordPriorFirst:], r.Prior)
	binary.BigEndian.PutUint32(b[RecordChecksumFirst:], r.Checksum)
	return b
}

func DecodeRecordHeader(b []byte) (RecordHeader, error) {
	var r RecordHeader
	if len(b) < RecordHeaderSize {
		return r, fmt.Errorf("%w: short", ErrRecordHeader)
	}
	r.Type = RecordType(b[0])
	r.Len = binary.BigEndian.Uint32(b[RecordLenFirst:])
	r.Address = cubemap.Address(binary.BigEndian.Uint64(b[RecordAddressFirst:]))
	r.Prior = binary.BigEndian.Uint64(b[RecordPriorFirst:])
	r.Checksum = binary.BigEndian.Uint32(b[RecordChecksumFirst:])
	switch r.Type {
	case RecordTypePage, RecordTypeMetadata:
	default:
		return r, fmt.Errorf("%w: type %d", ErrRecordHeader, r.Type)
	}
	if r.Len > MaxRecordPayloadSize {
		return r, fmt.Errorf("%w: length %d", ErrRecordHeader, r.Len)
	}
	return r, nil
}

func checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// pageCodec converts page buffers to and from compressed record payloads.
type pageCodec struct {
	params Params
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	raw    []byte
}

func newPageCodec(params Params) (*pageCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &pageCodec{params: params, enc: enc, dec: dec}, nil
}

func (c *pageCodec) sampleBytes() int { return c.params.Bits / 8 }

func (c *pageCodec) encode(p *Page) []byte {
	w := c.sampleBytes()
	c.raw = c.raw[:0]
	var buf [4]byte
	for _, v := range p.Data {
		u := c.params.quantize(v)
		switch w {
		case 1:
			buf[0] = byte(u)
		case 2:
			binary.BigEndian.PutUint16(buf[:], uint16(u))
		default:
			binary.BigEndian.PutUint32(buf[:], u)
		}
		c.raw = append(c.raw, buf[:w]...)
	}
	return c.enc.EncodeAll(c.raw, nil)
}

func (c *pageCodec) decode(payload []byte, p *Page) error {
	raw, err := c.dec.DecodeAll(payload, c.raw[:0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPage, err)
	}
	c.raw = raw
	w := c.sampleBytes()
	if len(raw) != len(p.Data)*w {
		return fmt.Errorf("%w: %d sample bytes, want %d", ErrCorruptPage, len(raw), len(p.Data)*w)
	}
	for k := range p.Data {
		var u uint32
		switch w {
		case 1:
			u = uint32(raw[k])
		case 2:
			u = uint32(binary.BigEndian.Uint16(raw[2*k:]))
		default:
			u = binary.BigEndian.Uint32(raw[4*k:])
		}
		p.Data[k] = c.params.dequantize(u)
	}
	return nil
}

func (c *pageCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}
