package cubemap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceNeighbors(t *testing.T) {
	for f := Face(0); f < FaceCount; f++ {
		for d := North; d <= West; d++ {
			g := Neighbor(Address(f), d)
			assert.Equal(t, Address(f.Edge(d)), g)
			assert.NotEqual(t, f, Root(g))
			assert.NotEqual(t, f.Opposite(), Root(g))
		}
	}
}

func TestTransformTable(t *testing.T) {
	for f := Face(0); f < FaceCount; f++ {
		for g := Face(0); g < FaceCount; g++ {
			tr := FaceTransform(f, g)
			switch g {
			case f:
				assert.Equal(t, Identity, tr)
			case f.Opposite():
				assert.Equal(t, None, tr)
			default:
				assert.NotEqual(t, None, tr)
				// the reverse mapping undoes the forward one
				back := FaceTransform(g, f)
				for _, p := range [][2]int{{0, 0}, {0, 3}, {2, 1}, {3, 3}} {
					i, j, _ := tr.Apply(p[0], p[1], 4)
					i, j, _ = back.Apply(i, j, 4)
					assert.Equal(t, p, [2]int{i, j}, "%d->%d %s", f, g, tr)
				}
			}
		}
	}
}

// nudge returns a direction just outside page a, beyond the midpoint of the
// edge in direction d.
func nudge(a Address, dy, dx int) Vector {
	f, l, r, c := Decompose(a)
	n := float64(LevelSize(l))
	eps := 1e-3 / n
	y := (float64(r) + 0.5) / n
	x := (float64(c) + 0.5) / n
	switch {
	case dy < 0:
		y = float64(r)/n - eps
	case dy > 0:
		y = float64(r+1)/n + eps
	}
	switch {
	case dx < 0:
		x = float64(c)/n - eps
	case dx > 0:
		x = float64(c+1)/n + eps
	}
	return FaceVector(f, y, x)
}

var directionSteps = map[Direction][2]int{
	North: {-1, 0},
	South: {1, 0},
	East:  {0, 1},
	West:  {0, -1},
}

func TestNeighborGeometry(t *testing.T) {
	for l := 0; l < 4; l++ {
		for a := LevelStart(l); a < LevelStart(l+1); a++ {
			for d, step := range directionSteps {
				want, _, _, ok := LocatePage(nudge(a, step[0], step[1]), l)
				require.True(t, ok)
				require.Equal(t, want, Neighbor(a, d), "page %s direction %d", a, d)
			}
		}
	}
}

func TestNeighborSymmetry(t *testing.T) {
	for l := 0; l < 4; l++ {
		for a := LevelStart(l); a < LevelStart(l+1); a++ {
			for d := North; d <= West; d++ {
				b := Neighbor(a, d)
				require.Equal(t, l, Level(b))
				back := 0
				for e := North; e <= West; e++ {
					if Neighbor(b, e) == a {
						back++
					}
				}
				require.Equal(t, 1, back, "page %s direction %d", a, d)
			}
		}
	}
}

var diagonalSteps = map[Diagonal][2]int{
	NorthWest: {-1, -1},
	NorthEast: {-1, 1},
	SouthWest: {1, -1},
	SouthEast: {1, 1},
}

func TestDiagonalNeighbor(t *testing.T) {
	for l := 0; l < 4; l++ {
		t.Run(fmt.Sprintf("level %d", l), func(t *testing.T) {
			for a := LevelStart(l); a < LevelStart(l+1); a++ {
				f := Root(a)
				for diag, step := range diagonalSteps {
					got := DiagonalNeighbor(a, diag)
					require.Equal(t, l, Level(got))
					require.NotEqual(t, f.Opposite(), Root(got), "page %s corner %d", a, diag)
					if AtVertex(a, diag) {
						continue
					}
					require.NotEqual(t, a, got)
					want, _, _, ok := LocatePage(nudge(a, step[0], step[1]), l)
					require.True(t, ok)
					require.Equal(t, want, got, "page %s corner %d", a, diag)
				}
			}
		})
	}
}

// vertexDiagonals is every corner lying on a cube vertex at levels 0 to 2.
// Only three pages meet there, and the composed steps may come back to the
// page itself or reach a page that does not touch the vertex.
var vertexDiagonals = []struct {
	page Address
	c    Diagonal
	want Address
}{
		// level 0
		{0, NorthWest, 2},
		{0, NorthEast, 2},
		{0, SouthWest, 3},
		{0, SouthEast, 3},
		{1, NorthWest, 2},
		{1, NorthEast, 2},
		{1, SouthWest, 3},
		{1, SouthEast, 3},
		{2, NorthWest, 2}, // itself
		{2, NorthEast, 2}, // itself
		{2, SouthWest, 1},
		{2, SouthEast, 0},
		{3, NorthWest, 1},
		{3, NorthEast, 0},
		{3, SouthWest, 3}, // itself
		{3, SouthEast, 3}, // itself
		{4, NorthWest, 2},
		{4, NorthEast, 2},
		{4, SouthWest, 3},
		{4, SouthEast, 3},
		{5, NorthWest, 2},
		{5, NorthEast, 2},
		{5, SouthWest, 3},
		{5, SouthEast, 3},
		// level 1
		{6, NorthWest, 17},
		{7, NorthEast, 15},
		{8, SouthWest, 19},
		{9, SouthEast, 21},
		{10, NorthWest, 14},
		{11, NorthEast, 16},
		{12, SouthWest, 20},
		{13, SouthEast, 18},
		{14, NorthWest, 14}, // itself
		{15, NorthEast, 15}, // itself
		{16, SouthWest, 13}, // does not touch the vertex
		{17, SouthEast, 8}, // does not touch the vertex
		{18, NorthWest, 11}, // does not touch the vertex
		{19, NorthEast, 6}, // does not touch the vertex
		{20, SouthWest, 20}, // itself
		{21, SouthEast, 21}, // itself
		{22, NorthWest, 16},
		{23, NorthEast, 17},
		{24, SouthWest, 18},
		{25, SouthEast, 19},
		{26, NorthWest, 15},
		{27, NorthEast, 14},
		{28, SouthWest, 21},
		{29, SouthEast, 20},
		// level 2
		{30, NorthWest, 77},
		{35, NorthEast, 67},
		{40, SouthWest, 83},
		{45, SouthEast, 93},
		{46, NorthWest, 62},
		{51, NorthEast, 72},
		{56, SouthWest, 88},
		{61, SouthEast, 78},
		{62, NorthWest, 62}, // itself
		{67, NorthEast, 67}, // itself
		{72, SouthWest, 53}, // does not touch the vertex
		{77, SouthEast, 32}, // does not touch the vertex
		{78, NorthWest, 59}, // does not touch the vertex
		{83, NorthEast, 38}, // does not touch the vertex
		{88, SouthWest, 88}, // itself
		{93, SouthEast, 93}, // itself
		{94, NorthWest, 72},
		{99, NorthEast, 77},
		{104, SouthWest, 78},
		{109, SouthEast, 83},
		{110, NorthWest, 67},
		{115, NorthEast, 62},
		{120, SouthWest, 93},
		{125, SouthEast, 88},
}

func TestDiagonalNeighborAtVertices(t *testing.T) {
	pinned := map[[2]int]bool{}
	for _, tt := range vertexDiagonals {
		require.True(t, AtVertex(tt.page, tt.c), "page %s corner %d", tt.page, tt.c)
		assert.Equal(t, tt.want, DiagonalNeighbor(tt.page, tt.c), "page %s corner %d", tt.page, tt.c)
		pinned[[2]int{int(tt.page), int(tt.c)}] = true
	}

	// every vertex corner of levels 0 to 2 is listed
	for a := Address(0); a < LevelStart(3); a++ {
		for c := NorthWest; c <= SouthEast; c++ {
			if AtVertex(a, c) {
				assert.True(t, pinned[[2]int{int(a), int(c)}], "page %s corner %d", a, c)
			}
		}
	}
	assert.Len(t, pinned, 3*FaceCount*4)

	// the corner of face 2 at its north edge returns to face 2
	assert.Equal(t, Address(PosY), DiagonalNeighbor(Address(PosY), NorthWest))
	// page 16 is on face 2, page 13 on face 1 does not reach its south west vertex
	assert.Greater(t, 1-1e-9, PageCorner(13, NorthEast).Dot(PageCorner(16, SouthWest)))
}
