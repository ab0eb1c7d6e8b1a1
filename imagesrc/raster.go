// Package imagesrc presents decoded raster images, together with a map
// projection, as directional sources for resampling onto the sphere.
package imagesrc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

var (
	ErrRasterShape = errors.New("the raster dimensions or channel count are invalid")
	ErrProjection  = errors.New("the projection parameters are invalid")
	ErrNormInvalid = errors.New("the normalization range is empty")
	ErrUnknownKind = errors.New("unknown projection kind")
)

// Raster holds raw sample values, row major with channels interleaved, in the
// numeric range of the source encoding (0..255 for unsigned 8 bit and so on).
type Raster struct {
	W, H   int
	C      int
	Bits   int
	Signed bool
	Data   []float64
}

func NewRaster(w, h, c, bits int, signed bool) (*Raster, error) {
	if w < 1 || h < 1 || c < 1 || c > 4 {
		return nil, fmt.Errorf("%w: %dx%d c%d", ErrRasterShape, w, h, c)
	}
	return &Raster{W: w, H: h, C: c, Bits: bits, Signed: signed, Data: make([]float64, w*h*c)}, nil
}

// At returns the channels of pixel (i, j), row i column j. The slice aliases
// the raster.
func (r *Raster) At(i, j int) []float64 {
	k := (i*r.W + j) * r.C
	return r.Data[k : k+r.C]
}

// Load decodes a PNG, JPEG or TIFF file.
func Load(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return FromImage(img)
}

// FromImage converts a decoded image to a raster, keeping the bit depth of
// the encoding. Colour images without any transparency become 3 channel.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch m := img.(type) {
	case *image.Gray:
		r, err := NewRaster(w, h, 1, 8, false)
		if err != nil {
			return nil, err
		}
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				r.At(i, j)[0] = float64(m.GrayAt(b.Min.X+j, b.Min.Y+i).Y)
			}
		}
		return r, nil
	case *image.Gray16:
		r, err := NewRaster(w, h, 1, 16, false)
		if err != nil {
			return nil, err
		}
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				r.At(i, j)[0] = float64(m.Gray16At(b.Min.X+j, b.Min.Y+i).Y)
			}
		}
		return r, nil
	}

	deep := false
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		deep = true
	}
	c := 3
	if !opaque(img) {
		c = 4
	}
	bits, div := 8, 257.0
	if deep {
		bits, div = 16, 1
	}
	r, err := NewRaster(w, h, c, bits, false)
	if err != nil {
		return nil, err
	}
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			px := color.NRGBA64Model.Convert(img.At(b.Min.X+j, b.Min.Y+i)).(color.NRGBA64)
			d := r.At(i, j)
			d[0] = float64(px.R) / div
			d[1] = float64(px.G) / div
			d[2] = float64(px.B) / div
			if c == 4 {
				d[3] = float64(px.A) / div
			}
		}
	}
	return r, nil
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
