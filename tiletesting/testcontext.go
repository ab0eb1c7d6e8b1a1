package tiletesting

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

type TestContext struct {
	Log logger.Logger
	T   *testing.T
}

func NewTestContext(t *testing.T, label string) TestContext {
	c := TestContext{
		T: t,
	}
	logger.New("NOOP")
	c.Log = logger.Sugar.WithServiceName(label)
	return c
}

// NewMemStore returns an empty in memory store holding exact float samples.
func (c *TestContext) NewMemStore(tileSize, channels int) *tilestore.MemStore {
	s, err := tilestore.NewMemStore(tilestore.Params{TileSize: tileSize, Channels: channels, Bits: 32})
	require.NoError(c.T, err)
	return s
}

// SampleFunc returns the interior sample values for row r, column c of the
// page at a.
type SampleFunc func(a cubemap.Address, r, c int, dst []float32)

// FillLevel appends every page of level l to s, computing each interior sample
// with fn. Borders are left zero.
func (c *TestContext) FillLevel(s tilestore.Appender, l int, fn SampleFunc) []cubemap.Address {
	var added []cubemap.Address
	for a := cubemap.LevelStart(l); a < cubemap.LevelStart(l+1); a++ {
		c.AddPage(s, a, fn)
		added = append(added, a)
	}
	return added
}

// AddPage appends the page at a to s using fn for its interior.
func (c *TestContext) AddPage(s tilestore.Appender, a cubemap.Address, fn SampleFunc) {
	p := tilestore.NewParamsPage(s.Params())
	for r := 0; r < p.N; r++ {
		for col := 0; col < p.N; col++ {
			fn(a, r, col, p.Interior(r, col))
		}
	}
	last := tilestore.NoOffset
	if l, ok := s.(interface{ LastOffset() uint64 }); ok {
		last = l.LastOffset()
	}
	_, err := s.Append(last, a, p)
	require.NoError(c.T, err)
}

// Constant fills every channel with v.
func Constant(v float32) SampleFunc {
	return func(_ cubemap.Address, _, _ int, dst []float32) {
		for k := range dst {
			dst[k] = v
		}
	}
}

// Directions stores the unit direction of each sample centre in the first
// three channels. Neighbouring pages can then be compared geometrically.
func Directions(n int) SampleFunc {
	return func(a cubemap.Address, r, c int, dst []float32) {
		f, l, row, col := cubemap.Decompose(a)
		m := n * cubemap.LevelSize(l)
		v := cubemap.SampleCenter(f, row*n+r, col*n+c, m)
		for k := 0; k < 3 && k < len(dst); k++ {
			dst[k] = float32(v[k])
		}
	}
}
