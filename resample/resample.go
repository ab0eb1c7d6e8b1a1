// Package resample supersamples a directional image source into the leaf
// pages of a cube-sphere pyramid.
package resample

import (
	"errors"
	"fmt"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

var (
	ErrChannelMismatch = errors.New("the destination must have the source channel count, or one more for coverage")
	ErrDepthInvalid    = errors.New("the leaf depth is out of range")
	ErrProbeGrid       = errors.New("the probe grid must be a power of two no larger than the maximum")
)

// Source is a projected image seen as a function of direction. Locate and
// Sample are called concurrently and must not modify the source.
type Source interface {
	Channels() int
	// Locate reports whether direction v falls inside the image.
	Locate(v cubemap.Vector) bool
	// Sample writes the image value at v to dst and reports whether v falls
	// inside the image.
	Sample(v cubemap.Vector, dst []float64) bool
}

// ChannelSwapper is implemented by sources whose first and third channels
// must be exchanged when a coverage channel is added, such as 8 bit RGB
// rasters written to BGRA stores.
type ChannelSwapper interface {
	SwapRedBlue() bool
}

type Result struct {
	Pages  int
	Nodes  int
	Pruned int
	// Empty counts leaves that overlapped the source by probe but received
	// no samples.
	Empty  int
	Hits   int64
	Dilate int
}

// run is the per run context: probe taps, options, the output chain and the
// scratch buffers, none of which are shared between runs.
type run struct {
	log      logger.Logger
	opts     Options
	src      Source
	w        *tilestore.ChainWriter
	probes   probes
	n, c     int
	coverage bool
	swap     bool
	page     *tilestore.Page
	scratch  *tilestore.Page
	hits     []int
	result   Result
}

// Run traverses the six face trees depth first. A page that the source
// overlaps is subdivided until the leaf depth, where it is filled by quincunx
// supersampling and appended. Leaves receiving no samples are not appended,
// and append order carries no meaning.
func Run(src Source, out tilestore.Appender, opts ...Option) (Result, error) {
	options := NewOptions(opts...)
	params := out.Params()

	sc := src.Channels()
	if params.Channels != sc && params.Channels != sc+1 {
		return Result{}, fmt.Errorf("%w: source %d, destination %d", ErrChannelMismatch, sc, params.Channels)
	}
	if options.Depth < 0 || options.Depth > cubemap.MaxDepth {
		return Result{}, fmt.Errorf("%w: %d", ErrDepthInvalid, options.Depth)
	}
	if !cubemap.IsPow2(uint64(options.ProbeGrid)) || options.ProbeGrid > MaxProbeGrid {
		return Result{}, fmt.Errorf("%w: %d", ErrProbeGrid, options.ProbeGrid)
	}

	r := &run{
		log:      options.Log,
		opts:     options,
		src:      src,
		w:        tilestore.NewChainWriter(out),
		probes:   newProbes(options.ProbeGrid),
		n:        params.TileSize,
		c:        params.Channels,
		coverage: params.Channels == sc+1,
		page:     tilestore.NewParamsPage(params),
		scratch:  tilestore.NewParamsPage(params),
		hits:     make([]int, params.TileSize),
	}
	if s, ok := src.(ChannelSwapper); ok && r.coverage {
		r.swap = s.SwapRedBlue() && sc == 3
	}

	for f := cubemap.Face(0); f < cubemap.FaceCount; f++ {
		if err := r.divide(cubemap.Address(f), options.Depth, 0, 0, 1); err != nil {
			return r.result, err
		}
	}
	r.log.Infof("resample: depth %d, %d pages appended, %d nodes visited, %d pruned",
		options.Depth, r.result.Pages, r.result.Nodes, r.result.Pruned)
	return r.result, nil
}

// divide visits page x, at row u column v of the w x w page array of its
// face, d levels above the leaves.
func (r *run) divide(x cubemap.Address, d, u, v, w int) error {
	r.result.Nodes++
	f := cubemap.Root(x)
	if !r.probes.overlaps(r.src, f, u, v, w) {
		r.result.Pruned++
		return nil
	}
	if d == 0 {
		return r.leaf(x, f, u, v, w)
	}
	for k := 0; k < 4; k++ {
		cu, cv := 2*u+(k>>1), 2*v+(k&1)
		if err := r.divide(cubemap.Child(x, k), d-1, cu, cv, 2*w); err != nil {
			return err
		}
	}
	return nil
}

// leaf fills and appends page x. Rows are computed concurrently, the page is
// appended only once every row is complete.
func (r *run) leaf(x cubemap.Address, f cubemap.Face, u, v, w int) error {
	r.page.Clear()

	rows := make(chan int)
	var wg sync.WaitGroup
	for k := 0; k < r.opts.Workers; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc := make([]float64, r.c)
			tmp := make([]float64, r.c)
			for i := range rows {
				r.hits[i] = r.row(f, i, u, v, w, acc, tmp)
			}
		}()
	}
	for i := 0; i < r.n; i++ {
		rows <- i
	}
	close(rows)
	wg.Wait()

	total := 0
	for _, h := range r.hits {
		total += h
	}
	if total == 0 {
		r.result.Empty++
		return nil
	}
	if r.coverage && r.opts.Dilate && total < r.n*r.n*5 {
		r.result.Dilate += dilate(r.page, r.scratch)
	}
	if err := r.w.Append(x, r.page); err != nil {
		return fmt.Errorf("resample: append %s: %w", x, err)
	}
	r.result.Pages++
	r.result.Hits += int64(total)
	r.log.Debugf("resample: page %s, %d hits", x, total)
	return nil
}

// row fills row i of the current leaf and returns its hit count. Each call
// writes only the samples of its own row.
func (r *run) row(f cubemap.Face, i, u, v, w int, acc, tmp []float64) int {
	n := r.n
	sc := r.src.Channels()
	hits := 0
	for j := 0; j < n; j++ {
		q := quincunx(cubemap.SampleCorners(f, n*u+i, n*v+j, n*w))
		clear(acc)
		N := 0
		for _, dir := range q {
			if !r.src.Sample(dir, tmp[:sc]) {
				continue
			}
			for k := 0; k < sc; k++ {
				acc[k] += tmp[k]
			}
			N++
		}
		if N == 0 {
			continue
		}
		d := r.page.Interior(i, j)
		for k := 0; k < sc; k++ {
			d[k] = float32(acc[k] / float64(N))
		}
		if r.coverage {
			if r.swap {
				d[0], d[2] = d[2], d[0]
			}
			d[sc] = float32(N) / 5
		}
		hits += N
	}
	return hits
}

// quincunx returns the centre of a sample footprint followed by the four
// midpoints between the centre and each corner.
func quincunx(c [4]cubemap.Vector) [5]cubemap.Vector {
	m := cubemap.Mid4(c[0], c[1], c[2], c[3])
	return [5]cubemap.Vector{
		m,
		cubemap.Mid2(m, c[0]),
		cubemap.Mid2(m, c[1]),
		cubemap.Mid2(m, c[2]),
		cubemap.Mid2(m, c[3]),
	}
}
