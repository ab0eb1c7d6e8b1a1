package cubemap

import "math"

// Vector is a direction in world space. Directions need not be unit length
// unless stated.
type Vector [3]float64

func (v Vector) Dot(w Vector) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

func (v Vector) Add(w Vector) Vector { return Vector{v[0] + w[0], v[1] + w[1], v[2] + w[2]} }

func (v Vector) Scale(s float64) Vector { return Vector{v[0] * s, v[1] * s, v[2] * s} }

func (v Vector) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vector) Normalize() Vector {
	k := v.Len()
	if k == 0 {
		return v
	}
	return v.Scale(1 / k)
}

// Usable reports whether v is non zero and finite, which is required for it
// to name a direction.
func (v Vector) Usable() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return v != Vector{}
}

// Mid2 returns the unit direction half way between a and b.
func Mid2(a, b Vector) Vector {
	return a.Add(b).Normalize()
}

// Mid4 returns the unit direction at the centre of a, b, c and d.
func Mid4(a, b, c, d Vector) Vector {
	return a.Add(b).Add(c).Add(d).Normalize()
}

// FaceVector returns the unit direction of the point at row position y and
// column position x of face f, both in [0, 1].
func FaceVector(f Face, y, x float64) Vector {
	s := x*math.Pi/2 - math.Pi/4
	t := y*math.Pi/2 - math.Pi/4
	eX, eY, eZ := f.Basis()
	return eX.Scale(math.Tan(s)).Add(eY.Scale(-math.Tan(t))).Add(eZ).Normalize()
}

// SampleCenter returns the direction of the centre of sample (i, j) in an
// n x n grid covering face f.
func SampleCenter(f Face, i, j, n int) Vector {
	fn := float64(n)
	return FaceVector(f, (float64(i)+0.5)/fn, (float64(j)+0.5)/fn)
}

// SampleCorners returns the directions of the four corners of sample (i, j)
// in an n x n grid covering face f, in the order NW NE SW SE.
func SampleCorners(f Face, i, j, n int) [4]Vector {
	fn := float64(n)
	y0, y1 := float64(i)/fn, float64(i+1)/fn
	x0, x1 := float64(j)/fn, float64(j+1)/fn
	return [4]Vector{
		FaceVector(f, y0, x0),
		FaceVector(f, y0, x1),
		FaceVector(f, y1, x0),
		FaceVector(f, y1, x1),
	}
}

// upper bound for face positions, the largest float64 below 1
var belowOne = math.Nextafter(1, 0)

// Locate returns the face and the row (y) and column (x) positions, each in
// [0, 1), of the direction v. ok is false if v is zero or not finite.
//
// The face is chosen by the component of largest magnitude, preferring x then
// y on ties.
func Locate(v Vector) (f Face, y, x float64, ok bool) {
	if !v.Usable() {
		return 0, 0, 0, false
	}
	ax, ay, az := math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])
	switch {
	case ax >= ay && ax >= az:
		f = PosX
		if v[0] < 0 {
			f = NegX
		}
	case ay >= az:
		f = PosY
		if v[1] < 0 {
			f = NegY
		}
	default:
		f = PosZ
		if v[2] < 0 {
			f = NegZ
		}
	}

	eX, eY, eZ := f.Basis()
	px, py, pz := v.Dot(eX), v.Dot(eY), v.Dot(eZ)

	x = clampUnit((math.Atan2(px, pz) + math.Pi/4) / (math.Pi / 2))
	y = clampUnit((math.Pi/4 - math.Atan2(py, pz)) / (math.Pi / 2))
	return f, y, x, true
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > belowOne {
		return belowOne
	}
	return v
}

// FromLonLat returns the unit direction for longitude and latitude in
// radians. Longitude 0 latitude 0 is +Z, longitude increases towards +X and
// latitude towards +Y.
func FromLonLat(lon, lat float64) Vector {
	return Vector{
		math.Sin(lon) * math.Cos(lat),
		math.Sin(lat),
		math.Cos(lon) * math.Cos(lat),
	}
}

// LonLat is the inverse of FromLonLat. v need not be unit length.
func LonLat(v Vector) (lon, lat float64) {
	k := v.Len()
	if k == 0 {
		return 0, 0
	}
	return math.Atan2(v[0], v[2]), math.Asin(v[1] / k)
}

// LocatePage returns the page at level l containing direction v, and the
// position of v within that page, each in [0, 1).
func LocatePage(v Vector, l int) (a Address, y, x float64, ok bool) {
	f, fy, fx, ok := Locate(v)
	if !ok {
		return 0, 0, 0, false
	}
	n := float64(LevelSize(l))
	row, col := math.Floor(fy*n), math.Floor(fx*n)
	return NewAddress(f, l, int(row), int(col)), fy*n - row, fx*n - col, true
}

// PageCorner returns the direction of corner c of page a.
func PageCorner(a Address, c Diagonal) Vector {
	f, l, r, col := Decompose(a)
	n := float64(LevelSize(l))
	y, x := float64(r)/n, float64(col)/n
	if c == SouthWest || c == SouthEast {
		y += 1 / n
	}
	if c == NorthEast || c == SouthEast {
		x += 1 / n
	}
	return FaceVector(f, y, x)
}

// AtVertex reports whether corner c of page a lies on a vertex of the cube,
// where only three pages meet.
func AtVertex(a Address, c Diagonal) bool {
	_, l, r, col := Decompose(a)
	last := LevelSize(l) - 1
	vertical := (c == NorthWest || c == NorthEast) && r == 0 ||
		(c == SouthWest || c == SouthEast) && r == last
	horizontal := (c == NorthWest || c == SouthWest) && col == 0 ||
		(c == NorthEast || c == SouthEast) && col == last
	return vertical && horizontal
}
