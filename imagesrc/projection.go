package imagesrc

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the map projection of a source image.
type Kind int

const (
	// LatLonGrid maps a rectangle of longitude and latitude linearly onto the
	// image. With the default bounds it is the whole sphere, wrapping in
	// longitude.
	LatLonGrid Kind = iota
	Equirectangular
	SimpleCylindrical
	Orthographic
	PolarStereographic
)

var kindNames = map[Kind]string{
	LatLonGrid:         "latlon",
	Equirectangular:    "equirectangular",
	SimpleCylindrical:  "simplecylindrical",
	Orthographic:       "orthographic",
	PolarStereographic: "polarstereographic",
}

func (k Kind) String() string { return kindNames[k] }

func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), " ", ""))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Projection maps longitude and latitude, in radians, to fractional image
// line and sample positions, where pixel (i, j) is centred on (i, j).
//
// The map projections follow the planetary data system conventions: map
// coordinates x, y in the units of Radius are converted to pixels as
//
//	sample = SampleOffset + x / Scale
//	line   = LineOffset - y / Scale
type Projection struct {
	Kind Kind

	CenterLat float64
	CenterLon float64
	Radius    float64
	// Scale is map units per pixel.
	Scale        float64
	LineOffset   float64
	SampleOffset float64

	// LatLonGrid bounds, see Global.
	West, East   float64
	South, North float64
}

// Global returns the whole sphere LatLonGrid projection.
func Global() Projection {
	return Projection{Kind: LatLonGrid, West: -math.Pi, East: math.Pi, South: -math.Pi / 2, North: math.Pi / 2}
}

func (p Projection) Validate() error {
	switch p.Kind {
	case LatLonGrid:
		if p.East <= p.West || p.North <= p.South {
			return fmt.Errorf("%w: empty bounds", ErrProjection)
		}
	case Equirectangular, SimpleCylindrical, Orthographic, PolarStereographic:
		if p.Radius <= 0 || p.Scale <= 0 {
			return fmt.Errorf("%w: radius %g scale %g", ErrProjection, p.Radius, p.Scale)
		}
		if p.Kind == PolarStereographic && p.CenterLat == 0 {
			return fmt.Errorf("%w: polar stereographic needs a pole", ErrProjection)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownKind, p.Kind)
	}
	return nil
}

// Project returns the image position of (lon, lat) for a w x h image. ok is
// false where the projection is undefined, such as the far side of an
// orthographic view.
func (p Projection) Project(lon, lat float64, w, h int) (line, sample float64, ok bool) {
	switch p.Kind {
	case LatLonGrid:
		dl := wrap(lon - p.West)
		sample = dl/(p.East-p.West)*float64(w) - 0.5
		line = (p.North-lat)/(p.North-p.South)*float64(h) - 0.5
		return line, sample, true

	case Equirectangular, SimpleCylindrical:
		lat1 := p.CenterLat
		if p.Kind == SimpleCylindrical {
			lat1 = 0
		}
		x := p.Radius * wrapSigned(lon-p.CenterLon) * math.Cos(lat1)
		y := p.Radius * lat
		return p.pixel(x, y)

	case Orthographic:
		dl := lon - p.CenterLon
		sin0, cos0 := math.Sincos(p.CenterLat)
		sinl, cosl := math.Sincos(lat)
		if sin0*sinl+cos0*cosl*math.Cos(dl) < 0 {
			return 0, 0, false
		}
		x := p.Radius * cosl * math.Sin(dl)
		y := p.Radius * (cos0*sinl - sin0*cosl*math.Cos(dl))
		return p.pixel(x, y)

	case PolarStereographic:
		dl := lon - p.CenterLon
		if p.CenterLat > 0 {
			if lat <= -math.Pi/2 {
				return 0, 0, false
			}
			rho := 2 * p.Radius * math.Tan(math.Pi/4-lat/2)
			return p.pixel(rho*math.Sin(dl), -rho*math.Cos(dl))
		}
		if lat >= math.Pi/2 {
			return 0, 0, false
		}
		rho := 2 * p.Radius * math.Tan(math.Pi/4+lat/2)
		return p.pixel(rho*math.Sin(dl), rho*math.Cos(dl))
	}
	return 0, 0, false
}

func (p Projection) pixel(x, y float64) (line, sample float64, ok bool) {
	return p.LineOffset - y/p.Scale, p.SampleOffset + x/p.Scale, true
}

// wrap reduces an angle to [0, 2pi).
func wrap(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// wrapSigned reduces an angle to [-pi, pi).
func wrapSigned(a float64) float64 {
	return wrap(a+math.Pi) - math.Pi
}
