package cubemap

// Direction names an edge of a page, in the orientation of the page's face.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Diagonal names a corner of a page.
type Diagonal int

const (
	NorthWest Diagonal = iota
	NorthEast
	SouthWest
	SouthEast
)

// Neighbor returns the page sharing the edge of a in direction d. Pages on
// the boundary of a face find their neighbour on the adjacent face, mapped
// through the face transform.
func Neighbor(a Address, d Direction) Address {
	f, l, r, c := Decompose(a)
	n := LevelSize(l)

	switch d {
	case North:
		if r > 0 {
			return NewAddress(f, l, r-1, c)
		}
		return across(f, d, l, n-1, c)
	case South:
		if r < n-1 {
			return NewAddress(f, l, r+1, c)
		}
		return across(f, d, l, 0, c)
	case West:
		if c > 0 {
			return NewAddress(f, l, r, c-1)
		}
		return across(f, d, l, r, n-1)
	default:
		if c < n-1 {
			return NewAddress(f, l, r, c+1)
		}
		return across(f, d, l, r, 0)
	}
}

// across maps the position (i, j), laid out as if the adjacent face
// continued the grid of f, onto the adjacent face itself.
func across(f Face, d Direction, l, i, j int) Address {
	g := f.Edge(d)
	ti, tj, _ := FaceTransform(f, g).Apply(i, j, LevelSize(l))
	return NewAddress(g, l, ti, tj)
}

// DiagonalNeighbor returns the page touching the given corner of a.
//
// If the vertical neighbour remains on the face of a, the corner is reached
// vertically then horizontally, otherwise horizontally then vertically. There
// is no transform to the face opposite a, so if that composition arrives there
// the other one is used.
//
// Only three faces meet at a cube vertex, so no page is diagonal to a corner
// lying on one (see AtVertex). There the result is whatever the composition
// reaches: a page of an adjacent face, a itself (the vertex corners on the
// north edge of +Y and the south edge of -Y), or from level 1 a page that does
// not touch the vertex at all.
func DiagonalNeighbor(a Address, c Diagonal) Address {
	var v, h Direction
	switch c {
	case NorthWest:
		v, h = North, West
	case NorthEast:
		v, h = North, East
	case SouthWest:
		v, h = South, West
	default:
		v, h = South, East
	}

	f := Root(a)
	vertical := Neighbor(a, v)
	horizontal := Neighbor(a, h)

	first := Neighbor(horizontal, v)
	other := Neighbor(vertical, h)
	if Root(vertical) == f {
		first, other = other, first
	}
	if Root(first) == f.Opposite() {
		return other
	}
	return first
}
