package cubemap

import "fmt"

// Address identifies a page. See doc.go for the numbering.
type Address uint64

const (
	// FaceCount is the number of quadtree roots
	FaceCount = 6

	// MaxDepth bounds the tree so that every address of every level fits in
	// 64 bits.
	MaxDepth = 30
)

// Child returns the address of quadrant k (0..3, NW NE SW SE) of page a.
func Child(a Address, k int) Address {
	return 6 + 4*a + Address(k&3)
}

// Parent returns the parent of a. The faces are their own parents.
func Parent(a Address) Address {
	if a < FaceCount {
		return a
	}
	return (a - 6) / 4
}

// Order returns the quadrant of a within its parent. Faces return 0.
func Order(a Address) int {
	if a < FaceCount {
		return 0
	}
	return int((a - 6) % 4)
}

// Root returns the face a descends from.
func Root(a Address) Face {
	for a >= FaceCount {
		a = (a - 6) / 4
	}
	return Face(a)
}

// Level returns the depth of a. Faces are level 0.
//
// Level l occupies [2^(2l+1)-2, 2^(2l+3)-2), so a+2 has a bit length of
// either 2l+2 or 2l+3.
func Level(a Address) int {
	return (BitLength(uint64(a)+2) - 2) / 2
}

// LevelStart returns the first address at level l.
func LevelStart(l int) Address {
	return Address(1)<<(2*l+1) - 2
}

// LevelCount returns the number of pages at level l.
func LevelCount(l int) uint64 {
	return 6 << (2 * l)
}

// PageCount returns the number of addresses in a pyramid complete to depth d.
// Every valid address in such a pyramid is < PageCount(d).
func PageCount(d int) uint64 {
	return uint64(LevelStart(d + 1))
}

// LevelSize returns the number of pages along one side of a face at level l.
func LevelSize(l int) int {
	return 1 << l
}

// Valid reports whether a lies within a pyramid of depth MaxDepth.
func Valid(a Address) bool {
	return uint64(a) < PageCount(MaxDepth)
}

// Decompose recovers the face, level and the row and column of a within its
// face at that level.
func Decompose(a Address) (face Face, level, row, col int) {
	bit := 1
	for a >= FaceCount {
		k := int((a - 6) % 4)
		row |= (k >> 1) * bit
		col |= (k & 1) * bit
		bit <<= 1
		level++
		a = (a - 6) / 4
	}
	return Face(a), level, row, col
}

// Row returns the row of a within its face.
func Row(a Address) int {
	_, _, row, _ := Decompose(a)
	return row
}

// Col returns the column of a within its face.
func Col(a Address) int {
	_, _, _, col := Decompose(a)
	return col
}

// NewAddress returns the page at row, col of face at the given level. row and
// col must be in [0, 2^level).
func NewAddress(face Face, level, row, col int) Address {
	a := Address(face)
	for b := level - 1; b >= 0; b-- {
		k := ((row>>b)&1)<<1 | (col>>b)&1
		a = Child(a, k)
	}
	return a
}

// Children returns the four children of a in quadrant order.
func Children(a Address) [4]Address {
	c := Child(a, 0)
	return [4]Address{c, c + 1, c + 2, c + 3}
}

func (a Address) String() string {
	f, l, r, c := Decompose(a)
	return fmt.Sprintf("%d(f%d l%d r%d c%d)", uint64(a), f, l, r, c)
}
