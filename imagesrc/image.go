package imagesrc

import (
	"fmt"
	"math"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// Image is a raster placed on the sphere by a projection. Sampled values are
// normalized so that Norm0 maps to 0 and Norm1 to 1.
type Image struct {
	Raster     *Raster
	Projection Projection
	Norm0      float64
	Norm1      float64

	wrapLon bool
}

type ImageOptions struct {
	Norm0, Norm1 float64
	normSet      bool
}

type ImageOption func(*ImageOptions)

// WithNormalization overrides the range implied by the raster encoding.
func WithNormalization(lo, hi float64) ImageOption {
	return func(o *ImageOptions) {
		o.Norm0, o.Norm1, o.normSet = lo, hi, true
	}
}

// DefaultNormalization is the full range of the encoding: 0..255 for unsigned
// 8 bit, 0..127 for signed 8 bit, 0..65535 and 0..32767 for 16 bit, and 0..1
// for anything else.
func DefaultNormalization(bits int, signed bool) (lo, hi float64) {
	switch {
	case bits == 8 && !signed:
		return 0, 255
	case bits == 8:
		return 0, 127
	case bits == 16 && !signed:
		return 0, 65535
	case bits == 16:
		return 0, 32767
	}
	return 0, 1
}

func NewImage(r *Raster, p Projection, opts ...ImageOption) (*Image, error) {
	if r == nil || len(r.Data) != r.W*r.H*r.C {
		return nil, ErrRasterShape
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := ImageOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.normSet {
		o.Norm0, o.Norm1 = DefaultNormalization(r.Bits, r.Signed)
	}
	if o.Norm1 == o.Norm0 || math.IsNaN(o.Norm1-o.Norm0) {
		return nil, fmt.Errorf("%w: %g..%g", ErrNormInvalid, o.Norm0, o.Norm1)
	}
	return &Image{
		Raster:     r,
		Projection: p,
		Norm0:      o.Norm0,
		Norm1:      o.Norm1,
		wrapLon:    p.Kind == LatLonGrid && p.East-p.West >= 2*math.Pi-1e-9,
	}, nil
}

func (m *Image) Channels() int { return m.Raster.C }

// SwapRedBlue reports whether the image is 8 bit RGB, which is stored as BGRA
// once coverage is added.
func (m *Image) SwapRedBlue() bool { return m.Raster.C == 3 && m.Raster.Bits == 8 }

// position returns the pixel position of v, or false if v falls outside the
// raster.
func (m *Image) position(v cubemap.Vector) (line, sample float64, ok bool) {
	if !v.Usable() {
		return 0, 0, false
	}
	lon, lat := cubemap.LonLat(v)
	r := m.Raster
	line, sample, ok = m.Projection.Project(lon, lat, r.W, r.H)
	if !ok {
		return 0, 0, false
	}
	if line < -0.5 || line >= float64(r.H)-0.5 {
		return 0, 0, false
	}
	if !m.wrapLon && (sample < -0.5 || sample >= float64(r.W)-0.5) {
		return 0, 0, false
	}
	return line, sample, true
}

func (m *Image) Locate(v cubemap.Vector) bool {
	_, _, ok := m.position(v)
	return ok
}

// Sample interpolates bilinearly between the four nearest pixels. Lines clamp
// at the raster edge, samples wrap around a global grid and clamp otherwise.
func (m *Image) Sample(v cubemap.Vector, dst []float64) bool {
	line, sample, ok := m.position(v)
	if !ok {
		return false
	}
	r := m.Raster
	i0 := int(math.Floor(line))
	j0 := int(math.Floor(sample))
	ti, tj := line-float64(i0), sample-float64(j0)
	i1 := min(i0+1, r.H-1)
	i0 = max(i0, 0)
	j1 := m.column(j0 + 1)
	j0 = m.column(j0)

	a, b := r.At(i0, j0), r.At(i0, j1)
	c, d := r.At(i1, j0), r.At(i1, j1)
	scale := 1 / (m.Norm1 - m.Norm0)
	for k := range dst[:r.C] {
		top := a[k] + (b[k]-a[k])*tj
		bottom := c[k] + (d[k]-c[k])*tj
		dst[k] = (top + (bottom-top)*ti - m.Norm0) * scale
	}
	return true
}

func (m *Image) column(j int) int {
	w := m.Raster.W
	if m.wrapLon {
		return ((j % w) + w) % w
	}
	return min(max(j, 0), w-1)
}
