package tilestore

import (
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Metadata is the trailing record written when a store is closed. A store may
// carry several, the last one wins.
type Metadata struct {
	Description string    `cbor:"1,keyasint"`
	Min         []float32 `cbor:"2,keyasint"`
	Max         []float32 `cbor:"3,keyasint"`
	Pages       uint64    `cbor:"4,keyasint"`
	Created     int64     `cbor:"5,keyasint"` // unix milliseconds
}

var metadataEncMode cbor.EncMode

func init() {
	var err error
	metadataEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func encodeMetadata(m Metadata) ([]byte, error) {
	return metadataEncMode.Marshal(m)
}

func decodeMetadata(data []byte) (Metadata, error) {
	var m Metadata
	err := cbor.Unmarshal(data, &m)
	return m, err
}

// Stats accumulates the per channel range of the interior samples of the
// pages written to a store.
type Stats struct {
	Min   []float32
	Max   []float32
	Pages uint64
}

func NewStats(channels int) Stats {
	s := Stats{Min: make([]float32, channels), Max: make([]float32, channels)}
	for c := range s.Min {
		s.Min[c] = math.MaxFloat32
		s.Max[c] = -math.MaxFloat32
	}
	return s
}

func (s *Stats) Add(p *Page) {
	s.Pages++
	for r := 0; r < p.N; r++ {
		for c := 0; c < p.N; c++ {
			for k, v := range p.Interior(r, c) {
				if v < s.Min[k] {
					s.Min[k] = v
				}
				if v > s.Max[k] {
					s.Max[k] = v
				}
			}
		}
	}
}

// Metadata returns the statistics as a metadata record. Channels that never
// saw a sample report a range of zero.
func (s *Stats) Metadata(description string) Metadata {
	m := Metadata{
		Description: description,
		Min:         append([]float32(nil), s.Min...),
		Max:         append([]float32(nil), s.Max...),
		Pages:       s.Pages,
		Created:     time.Now().UnixMilli(),
	}
	if s.Pages == 0 {
		clear(m.Min)
		clear(m.Max)
	}
	return m
}
