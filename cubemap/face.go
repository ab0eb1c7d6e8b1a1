package cubemap

// Face is one of the six quadtree roots.
type Face int

const (
	PosX Face = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

// Opposite returns the antipodal face.
func (f Face) Opposite() Face { return f ^ 1 }

// Basis returns the right handed local frame of the face: columns increase
// along eX, rows increase along -eY and eZ is the outward normal.
func (f Face) Basis() (eX, eY, eZ Vector) {
	b := faceBasis[f]
	return b[0], b[1], b[2]
}

var faceBasis = [FaceCount][3]Vector{
	{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
	{{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, 1}, {0, -1, 0}},
	{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}},
}

// Edge returns the face sharing the edge of f in direction d.
func (f Face) Edge(d Direction) Face {
	return faceEdges[f][d]
}

// indexed by Direction: North, South, East, West
var faceEdges = [FaceCount][4]Face{
	{PosY, NegY, NegZ, PosZ},
	{PosY, NegY, PosZ, NegZ},
	{NegZ, PosZ, PosX, NegX},
	{PosZ, NegZ, PosX, NegX},
	{PosY, NegY, PosX, NegX},
	{PosY, NegY, NegX, PosX},
}

// Transform maps grid positions expressed in the orientation of one face to
// the orientation of an adjacent face.
type Transform int

const (
	// None is the transform between opposite faces, which share no edge.
	None Transform = iota
	Identity
	Rotate180
	// RotateCW rotates the grid a quarter turn clockwise.
	RotateCW
	// RotateCCW rotates the grid a quarter turn counter clockwise.
	RotateCCW
)

func (t Transform) String() string {
	switch t {
	case Identity:
		return "identity"
	case Rotate180:
		return "rotate180"
	case RotateCW:
		return "rotatecw"
	case RotateCCW:
		return "rotateccw"
	default:
		return "none"
	}
}

// Apply maps position (i, j) of an n x n grid. ok is false for None.
func (t Transform) Apply(i, j, n int) (ti, tj int, ok bool) {
	switch t {
	case Identity:
		return i, j, true
	case Rotate180:
		return n - 1 - i, n - 1 - j, true
	case RotateCW:
		return j, n - 1 - i, true
	case RotateCCW:
		return n - 1 - j, i, true
	default:
		return 0, 0, false
	}
}

// FaceTransform returns the transform taking positions laid out in the
// orientation of face from to the native grid of face to.
func FaceTransform(from, to Face) Transform {
	return faceTransforms[from][to]
}

var faceTransforms = [FaceCount][FaceCount]Transform{
	{Identity, None, RotateCCW, RotateCW, Identity, Identity},
	{None, Identity, RotateCW, RotateCCW, Identity, Identity},
	{RotateCW, RotateCCW, Identity, None, Identity, Rotate180},
	{RotateCCW, RotateCW, None, Identity, Identity, Rotate180},
	{Identity, Identity, Identity, Identity, Identity, None},
	{Identity, Identity, Rotate180, Rotate180, None, Identity},
}
