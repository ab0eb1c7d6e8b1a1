// Package lookup samples a pyramid at arbitrary directions, using the deepest
// page present at each.
package lookup

import (
	"math"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

// Locator is the per run context for point queries. It keeps the most
// recently read page, consecutive queries tend to land on the same one. It is
// not safe for concurrent use.
type Locator struct {
	log    logger.Logger
	r      tilestore.Reader
	cat    *tilestore.Catalog
	page   *tilestore.Page
	loaded cubemap.Address
	valid  bool

	Reads int
}

func NewLocator(log logger.Logger, r tilestore.Reader, cat *tilestore.Catalog) *Locator {
	return &Locator{
		log:  log,
		r:    r,
		cat:  cat,
		page: tilestore.NewParamsPage(r.Params()),
	}
}

// Channels is the length of the values written by Sample.
func (l *Locator) Channels() int { return l.page.Channels }

// Sample writes the value at direction v to dst, interpolated from the deepest
// present page no deeper than maxDepth. If the face holding v has no root page,
// or v is not a usable direction, dst is zeroed and false is returned. Only the
// first min(len(dst), Channels()) values are written, the rest are zeroed.
func (l *Locator) Sample(v cubemap.Vector, maxDepth int, dst []float32) bool {
	clear(dst)
	f, y, x, ok := cubemap.Locate(v)
	if !ok {
		return false
	}
	return l.search(cubemap.Address(f), maxDepth, y, x, dst)
}

// SampleLonLat is Sample for a longitude and latitude in radians.
func (l *Locator) SampleLonLat(lon, lat float64, maxDepth int, dst []float32) bool {
	return l.Sample(cubemap.FromLonLat(lon, lat), maxDepth, dst)
}

// search descends from page a towards the child containing (y, x), which are
// positions within a. If nothing deeper can be sampled, a itself is.
func (l *Locator) search(a cubemap.Address, d int, y, x float64, dst []float32) bool {
	if !l.cat.Has(a) {
		return false
	}
	if d > 0 {
		k, cy, cx := 0, 2*y, 2*x
		if y >= 0.5 {
			k, cy = k|2, 2*(y-0.5)
		}
		if x >= 0.5 {
			k, cx = k|1, 2*(x-0.5)
		}
		if l.search(cubemap.Child(a, k), d-1, cy, cx, dst) {
			return true
		}
	}
	if !l.load(a) {
		return false
	}
	l.bilinear(y, x, dst)
	return true
}

func (l *Locator) load(a cubemap.Address) bool {
	if l.valid && l.loaded == a {
		return true
	}
	l.valid = false
	if err := l.r.ReadPage(l.cat.Find(a), l.page); err != nil {
		l.log.Infof("lookup: page %s unreadable: %v", a, err)
		return false
	}
	l.loaded, l.valid = a, true
	l.Reads++
	return true
}

// bilinear interpolates the loaded page at position (y, x). Sample centres
// lie at (k + 0.5) / n, so positions within half a sample of the page edge
// blend with the border ring.
func (l *Locator) bilinear(y, x float64, dst []float32) {
	p := l.page
	n := float64(p.N)
	u := y*n + 0.5
	w := x*n + 0.5
	i1, j1 := int(math.Floor(u)), int(math.Floor(w))
	i1 = min(max(i1, 0), p.N)
	j1 = min(max(j1, 0), p.N)
	ti, tj := float32(u-float64(i1)), float32(w-float64(j1))

	a, b := p.At(i1, j1), p.At(i1, j1+1)
	c, d := p.At(i1+1, j1), p.At(i1+1, j1+1)
	for k := range dst[:min(len(dst), p.Channels)] {
		top := a[k] + (b[k]-a[k])*tj
		bottom := c[k] + (d[k]-c[k])*tj
		dst[k] = top + (bottom-top)*ti
	}
}
