package border

import (
	"fmt"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tiletesting"
	"github.com/forestrie/go-cubetiles/tilestore"
)

// expectSample returns the stored value of the face level sample on the far
// side of a page edge or corner. The point (y, x) lies on the page boundary of
// face f, (dy, dx) points outwards. Sample boundaries coincide along shared
// cube edges, so a tiny step across the boundary lands in the sample that
// shares it.
func expectSample(f cubemap.Face, m int, y, x float64, dy, dx int) []float32 {
	eps := 1e-6 / float64(m)
	v := cubemap.FaceVector(f, y+float64(dy)*eps, x+float64(dx)*eps)
	g, gy, gx, ok := cubemap.Locate(v)
	if !ok {
		return nil
	}
	c := cubemap.SampleCenter(g, int(gy*float64(m)), int(gx*float64(m)), m)
	return []float32{float32(c[0]), float32(c[1]), float32(c[2])}
}

// vertexSource returns the padded position of the interior corner sample of g
// nearest corner c of page a.
func vertexSource(a, g cubemap.Address, c cubemap.Diagonal, o int) (int, int) {
	vertex := cubemap.PageCorner(a, c)
	best, nearest := -2.0, cubemap.NorthWest
	for k := cubemap.NorthWest; k <= cubemap.SouthEast; k++ {
		if d := cubemap.PageCorner(g, k).Dot(vertex); d > best {
			best, nearest = d, k
		}
	}
	switch nearest {
	case cubemap.NorthWest:
		return 1, 1
	case cubemap.NorthEast:
		return 1, o - 2
	case cubemap.SouthWest:
		return o - 2, 1
	}
	return o - 2, o - 2
}

func TestStitchFullLevel(t *testing.T) {
	for _, tt := range []struct{ level, n int }{{0, 4}, {1, 4}, {2, 3}} {
		t.Run(fmt.Sprintf("level %d n %d", tt.level, tt.n), func(t *testing.T) {
			tc := tiletesting.NewTestContext(t, "border")
			defer logger.OnExit()

			in := tc.NewMemStore(tt.n, 3)
			pages := tc.FillLevel(in, tt.level, tiletesting.Directions(tt.n))
			out := tc.NewMemStore(tt.n, 3)

			res, err := Stitch(in, out, WithLogger(tc.Log))
			require.NoError(t, err)
			assert.Equal(t, len(pages), res.Pages)
			assert.Equal(t, 4*len(pages), res.Edges)
			assert.Equal(t, 4*len(pages), res.Corners)
			assert.Equal(t, 0, res.Skipped)

			n := tt.n
			o := n + 2
			m := n * cubemap.LevelSize(tt.level)
			for _, a := range pages {
				p := out.Page(a)
				require.NotNil(t, p)
				orig := in.Page(a)
				f, _, row, col := cubemap.Decompose(a)
				R, C := row*n, col*n

				// interiors are unchanged
				for i := 1; i <= n; i++ {
					for j := 1; j <= n; j++ {
						require.Equal(t, orig.At(i, j), p.At(i, j))
					}
				}

				fm := float64(m)
				for k := 1; k <= n; k++ {
					along := float64(C+k-1) + 0.5
					require.Equal(t, expectSample(f, m, float64(R)/fm, along/fm, -1, 0), p.At(0, k), "%s north %d", a, k)
					require.Equal(t, expectSample(f, m, float64(R+n)/fm, along/fm, 1, 0), p.At(o-1, k), "%s south %d", a, k)
					along = float64(R+k-1) + 0.5
					require.Equal(t, expectSample(f, m, along/fm, float64(C)/fm, 0, -1), p.At(k, 0), "%s west %d", a, k)
					require.Equal(t, expectSample(f, m, along/fm, float64(C+n)/fm, 0, 1), p.At(k, o-1), "%s east %d", a, k)
				}

				corners := []struct {
					i, j   int
					dy, dx int
					diag   cubemap.Diagonal
				}{
					{0, 0, -1, -1, cubemap.NorthWest},
					{0, o - 1, -1, 1, cubemap.NorthEast},
					{o - 1, 0, 1, -1, cubemap.SouthWest},
					{o - 1, o - 1, 1, 1, cubemap.SouthEast},
				}
				for _, c := range corners {
					y := float64(R) / fm
					if c.dy > 0 {
						y = float64(R+n) / fm
					}
					x := float64(C) / fm
					if c.dx > 0 {
						x = float64(C+n) / fm
					}
					ghost := p.At(c.i, c.j)
					atVertex := (y == 0 || y == 1) && (x == 0 || x == 1)
					if !atVertex {
						require.Equal(t, expectSample(f, m, y, x, c.dy, c.dx), ghost, "%s corner %d,%d", a, c.i, c.j)
						continue
					}
					// only three pages meet at a cube vertex, the ghost takes
					// the interior corner sample of the diagonal page whose
					// corner is nearest the vertex
					g := cubemap.DiagonalNeighbor(a, c.diag)
					want := in.Page(g).At(vertexSource(a, g, c.diag, o))
					require.Equal(t, want, ghost, "%s vertex corner %d", a, c.diag)
				}
			}
		})
	}
}

func TestStitchConstantLevel0(t *testing.T) {
	tc := tiletesting.NewTestContext(t, "border")
	defer logger.OnExit()

	in := tc.NewMemStore(4, 1)
	tc.FillLevel(in, 0, tiletesting.Constant(1))
	out := tc.NewMemStore(4, 1)
	_, err := Stitch(in, out, WithLogger(tc.Log))
	require.NoError(t, err)

	for f := cubemap.Address(0); f < cubemap.FaceCount; f++ {
		p := out.Page(f)
		require.NotNil(t, p)
		for _, v := range p.Data {
			require.Equal(t, float32(1), v, "face %d", f)
		}
	}
}

func TestStitchAbsentNeighbours(t *testing.T) {
	tc := tiletesting.NewTestContext(t, "border")
	defer logger.OnExit()

	in := tc.NewMemStore(2, 1)
	a := cubemap.NewAddress(cubemap.PosZ, 2, 1, 1)
	tc.AddPage(in, a, tiletesting.Constant(0.5))
	// a neighbour to the east, nothing else
	tc.AddPage(in, cubemap.Neighbor(a, cubemap.East), tiletesting.Constant(0.25))

	out := tc.NewMemStore(2, 1)
	res, err := Stitch(in, out, WithLogger(tc.Log))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages, "no pages are synthesized")
	assert.Equal(t, 2, res.Edges)
	assert.Equal(t, 0, res.Corners)

	p := out.Page(a)
	o := p.Padded()
	for k := 0; k < o; k++ {
		assert.Equal(t, float32(0), p.At(0, k)[0], "north untouched")
		assert.Equal(t, float32(0), p.At(k, 0)[0], "west untouched")
	}
	for k := 1; k < o-1; k++ {
		assert.Equal(t, float32(0.25), p.At(k, o-1)[0], "east filled")
	}
}

func TestStitchParamsMismatch(t *testing.T) {
	tc := tiletesting.NewTestContext(t, "border")
	defer logger.OnExit()

	_, err := Stitch(tc.NewMemStore(4, 1), tc.NewMemStore(4, 2), WithLogger(tc.Log))
	assert.ErrorIs(t, err, tilestore.ErrParamsMismatch)
}
