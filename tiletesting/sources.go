package tiletesting

import (
	"math"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// ConstantSource covers the whole sphere with one value per channel.
type ConstantSource struct {
	Value []float64
	// Swap reports that the red and blue channels must be exchanged when
	// coverage is added.
	Swap bool
}

func (s ConstantSource) Channels() int              { return len(s.Value) }
func (s ConstantSource) Locate(cubemap.Vector) bool { return true }
func (s ConstantSource) SwapRedBlue() bool          { return s.Swap }
func (s ConstantSource) Sample(_ cubemap.Vector, dst []float64) bool {
	copy(dst, s.Value)
	return true
}

// CapSource covers the spherical cap within Radius radians of Axis.
type CapSource struct {
	Axis   cubemap.Vector
	Radius float64
	Value  []float64
}

func (s CapSource) Channels() int { return len(s.Value) }

func (s CapSource) Locate(v cubemap.Vector) bool {
	a := s.Axis.Normalize()
	return v.Normalize().Dot(a) >= math.Cos(s.Radius)
}

func (s CapSource) Sample(v cubemap.Vector, dst []float64) bool {
	if !s.Locate(v) {
		return false
	}
	copy(dst, s.Value)
	return true
}

// EmptySource covers nothing.
type EmptySource struct {
	C int
}

func (s EmptySource) Channels() int                         { return s.C }
func (s EmptySource) Locate(cubemap.Vector) bool            { return false }
func (s EmptySource) Sample(cubemap.Vector, []float64) bool { return false }

// GradientSource covers the whole sphere, its single channel is the z
// component of the direction mapped to [0, 1].
type GradientSource struct{}

func (GradientSource) Channels() int              { return 1 }
func (GradientSource) Locate(cubemap.Vector) bool { return true }
func (GradientSource) Sample(v cubemap.Vector, dst []float64) bool {
	dst[0] = (v.Normalize()[2] + 1) / 2
	return true
}
