package resample

import (
	"github.com/forestrie/go-cubetiles/cubemap"
)

// probes is a maximally dispersed ordering of the cells of a g x g grid:
// recursive bisection of the cell index sequence, which is its bit reversal
// permutation. Early probes spread across the whole page, so a page that
// overlaps the source at all is usually confirmed after a few tests.
type probes struct {
	grid int
	taps []int
}

func newProbes(grid int) probes {
	taps := make([]int, grid*grid)
	bisect(0, 1, taps)
	return probes{grid: grid, taps: taps}
}

func bisect(a, d int, x []int) {
	if len(x) == 1 {
		x[0] = a
		return
	}
	h := len(x) / 2
	bisect(a, d*2, x[:h])
	bisect(a+d, d*2, x[h:])
}

// overlaps reports whether any probe direction within page (u, v) of the
// w x w page array of face f lands in the source. A source whose footprint
// is thinner than the probe spacing can be missed, in which case the page and
// everything below it is treated as outside the source.
func (p probes) overlaps(src Source, f cubemap.Face, u, v, w int) bool {
	g := p.grid
	for _, t := range p.taps {
		i, j := t/g, t%g
		if src.Locate(cubemap.SampleCenter(f, g*u+i, g*v+j, g*w)) {
			return true
		}
	}
	return false
}
