package resample

import "github.com/forestrie/go-cubetiles/tilestore"

// dilate grows colour outwards from the covered samples of p into the
// uncovered ones, one ring per pass, so that filtering near the edge of the
// source footprint does not blend towards black. The last channel is coverage
// and is left unchanged. scratch must match p. Returns the number of samples
// filled.
func dilate(p, scratch *tilestore.Page) int {
	n, c := p.N, p.Channels
	cov := c - 1
	filled := make([]bool, n*n)
	remaining := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			filled[i*n+j] = p.Interior(i, j)[cov] > 0
			if !filled[i*n+j] {
				remaining++
			}
		}
	}

	grown := 0
	next := make([]bool, n*n)
	for remaining > 0 {
		copy(next, filled)
		copy(scratch.Data, p.Data)
		step := 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if filled[i*n+j] {
					continue
				}
				d := scratch.Interior(i, j)
				count := 0
				for di := -1; di <= 1; di++ {
					for dj := -1; dj <= 1; dj++ {
						y, x := i+di, j+dj
						if y < 0 || y >= n || x < 0 || x >= n || !filled[y*n+x] {
							continue
						}
						if count == 0 {
							clear(d[:cov])
						}
						for k, v := range p.Interior(y, x)[:cov] {
							d[k] += v
						}
						count++
					}
				}
				if count == 0 {
					continue
				}
				for k := range d[:cov] {
					d[k] /= float32(count)
				}
				next[i*n+j] = true
				step++
			}
		}
		if step == 0 {
			break
		}
		copy(p.Data, scratch.Data)
		filled, next = next, filled
		remaining -= step
		grown += step
	}
	return grown
}
