package border

import (
	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

// Positions are padded page coordinates. The source position is first written
// as if the neighbour continued the grid of the destination face, then mapped
// onto the neighbour's own grid by the face transform. Rotations about the
// centre of the padded grid keep interior samples interior.

// copyEdge fills the border row or column of dst on side d from the interior
// row or column of src adjacent to it.
func copyEdge(dst, src *tilestore.Page, d cubemap.Direction, t cubemap.Transform) bool {
	if t == cubemap.None {
		return false
	}
	o := dst.Padded()
	for k := 0; k < o; k++ {
		var di, dj, si, sj int
		switch d {
		case cubemap.North:
			di, dj, si, sj = 0, k, o-2, k
		case cubemap.South:
			di, dj, si, sj = o-1, k, 1, k
		case cubemap.West:
			di, dj, si, sj = k, 0, k, o-2
		default:
			di, dj, si, sj = k, o-1, k, 1
		}
		si, sj, _ = t.Apply(si, sj, o)
		copy(dst.At(di, dj), src.At(si, sj))
	}
	return true
}

// copyCorner fills one corner sample of dst from the far corner of the
// interior of src.
func copyCorner(dst, src *tilestore.Page, c cubemap.Diagonal, t cubemap.Transform) bool {
	o := dst.Padded()
	var di, dj, si, sj int
	switch c {
	case cubemap.NorthWest:
		di, dj, si, sj = 0, 0, o-2, o-2
	case cubemap.NorthEast:
		di, dj, si, sj = 0, o-1, o-2, 1
	case cubemap.SouthWest:
		di, dj, si, sj = o-1, 0, 1, o-2
	default:
		di, dj, si, sj = o-1, o-1, 1, 1
	}
	si, sj, ok := t.Apply(si, sj, o)
	if !ok {
		return false
	}
	copy(dst.At(di, dj), src.At(si, sj))
	return true
}

// copyVertexCorner fills a corner of dst that lies on a cube vertex, where g
// is whatever DiagonalNeighbor returned. The grid of dst does not continue
// onto g, so the source is the interior corner sample of g whose page corner
// is nearest the vertex. That is the sample at the vertex when g touches it.
// When g is dst itself it is the interior sample next to the ghost, and when g
// does not touch the vertex it is the corner of g closest to it.
func copyVertexCorner(dst, src *tilestore.Page, x, g cubemap.Address, c cubemap.Diagonal, t cubemap.Transform) bool {
	if t == cubemap.None {
		return false
	}
	vertex := cubemap.PageCorner(x, c)
	best, nearest := -2.0, cubemap.NorthWest
	for k := cubemap.NorthWest; k <= cubemap.SouthEast; k++ {
		if d := cubemap.PageCorner(g, k).Dot(vertex); d > best {
			best, nearest = d, k
		}
	}

	o := dst.Padded()
	si, sj := 1, 1
	if nearest == cubemap.SouthWest || nearest == cubemap.SouthEast {
		si = o - 2
	}
	if nearest == cubemap.NorthEast || nearest == cubemap.SouthEast {
		sj = o - 2
	}
	di, dj := 0, 0
	if c == cubemap.SouthWest || c == cubemap.SouthEast {
		di = o - 1
	}
	if c == cubemap.NorthEast || c == cubemap.SouthEast {
		dj = o - 1
	}
	copy(dst.At(di, dj), src.At(si, sj))
	return true
}
