package tilestore

import (
	"fmt"
	"math"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// NoOffset is the reserved "none" offset. No record is ever stored at offset
// 0, the store header occupies it.
const NoOffset uint64 = 0

const (
	MaxChannels = 4
	MaxTileSize = 1 << 14
)

// Params describe the pages held in a store. They are fixed when the store is
// created.
type Params struct {
	// TileSize is the number of samples along each side of a page, excluding
	// the one sample border.
	TileSize int
	Channels int
	// Bits is the stored sample depth: 8, 16 or 32 (float).
	Bits   int
	Signed bool

	Description string
}

func (p Params) Validate() error {
	if p.TileSize < 1 || p.TileSize > MaxTileSize {
		return fmt.Errorf("%w: tile size %d", ErrParamsInvalid, p.TileSize)
	}
	if p.Channels < 1 || p.Channels > MaxChannels {
		return fmt.Errorf("%w: channels %d", ErrParamsInvalid, p.Channels)
	}
	switch p.Bits {
	case 8, 16, 32:
	default:
		return fmt.Errorf("%w: bits %d", ErrParamsInvalid, p.Bits)
	}
	return nil
}

// PaddedSize is the side of a page buffer including the border.
func (p Params) PaddedSize() int { return p.TileSize + 2 }

// PageLen is the number of float32 values in a page buffer.
func (p Params) PageLen() int {
	o := p.PaddedSize()
	return o * o * p.Channels
}

// CheckPaired fails with ErrParamsMismatch if pages from a cannot be written
// to b unchanged.
func CheckPaired(a, b Params) error {
	if a.TileSize != b.TileSize || a.Channels != b.Channels {
		return fmt.Errorf(
			"%w: %dx%d c%d vs %dx%d c%d", ErrParamsMismatch,
			a.TileSize, a.TileSize, a.Channels, b.TileSize, b.TileSize, b.Channels)
	}
	return nil
}

// Entry pairs a page address with the offset of its record.
type Entry struct {
	Address cubemap.Address
	Offset  uint64
}

// quantization of normalized samples to stored integers

func (p Params) quantMax() float64 {
	switch {
	case p.Bits == 8 && p.Signed:
		return math.MaxInt8
	case p.Bits == 8:
		return math.MaxUint8
	case p.Bits == 16 && p.Signed:
		return math.MaxInt16
	default:
		return math.MaxUint16
	}
}

func (p Params) quantize(v float32) uint32 {
	if p.Bits == 32 {
		return math.Float32bits(v)
	}
	m := p.quantMax()
	lo := 0.0
	if p.Signed {
		lo = -m
	}
	q := math.Round(float64(v) * m)
	q = math.Max(lo, math.Min(m, q))
	if p.Signed {
		return uint32(int32(q))
	}
	return uint32(q)
}

func (p Params) dequantize(u uint32) float32 {
	if p.Bits == 32 {
		return math.Float32frombits(u)
	}
	m := p.quantMax()
	if !p.Signed {
		return float32(float64(u) / m)
	}
	if p.Bits == 8 {
		return float32(float64(int8(u)) / m)
	}
	return float32(float64(int16(u)) / m)
}
