// Package border fills the one sample ghost ring of every page in a store from
// the interiors of its neighbours.
package border

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

type Result struct {
	Pages   int
	Edges   int
	Corners int
	Skipped int
}

type Options struct {
	Log logger.Logger
}

type Option func(*Options)

func WithLogger(log logger.Logger) Option {
	return func(opts *Options) {
		opts.Log = log
	}
}

// stitcher is the per run context. It owns the page buffers and caches the
// most recently read neighbour, consecutive pages tend to share neighbours.
type stitcher struct {
	log    logger.Logger
	in     tilestore.Reader
	cat    *tilestore.Catalog
	page   *tilestore.Page
	nb     *tilestore.Page
	nbAddr cubemap.Address
	nbOK   bool
	result Result
}

// Stitch writes every readable page of in to out, at the same address, with
// its border filled from the present edge and diagonal neighbours. Pages are
// never synthesized. A border whose neighbour is absent is left as read.
func Stitch(in tilestore.Reader, out tilestore.Appender, opts ...Option) (Result, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Log == nil {
		options.Log = logger.Sugar.WithServiceName("border")
	}
	if err := tilestore.CheckPaired(in.Params(), out.Params()); err != nil {
		return Result{}, err
	}

	cat, err := tilestore.Scan(in, options.Log)
	if err != nil {
		return Result{}, err
	}

	s := &stitcher{
		log:  options.Log,
		in:   in,
		cat:  cat,
		page: tilestore.NewParamsPage(in.Params()),
		nb:   tilestore.NewParamsPage(in.Params()),
	}
	w := tilestore.NewChainWriter(out)
	for _, e := range cat.Entries() {
		if err := in.ReadPage(e.Offset, s.page); err != nil {
			s.log.Infof("border: skipping unreadable page %s: %v", e.Address, err)
			s.result.Skipped++
			continue
		}
		s.fill(e.Address)
		if err := w.Append(e.Address, s.page); err != nil {
			return s.result, fmt.Errorf("border: append %s: %w", e.Address, err)
		}
		s.result.Pages++
	}
	s.log.Infof("border: %d pages, %d edges, %d corners, %d skipped",
		s.result.Pages, s.result.Edges, s.result.Corners, s.result.Skipped)
	return s.result, nil
}

// neighbour loads the page at a into s.nb, reusing the previous load.
func (s *stitcher) neighbour(a cubemap.Address) bool {
	if s.nbOK && s.nbAddr == a {
		return true
	}
	offset := s.cat.Find(a)
	if offset == tilestore.NoOffset {
		return false
	}
	s.nbOK = false
	if err := s.in.ReadPage(offset, s.nb); err != nil {
		s.log.Infof("border: neighbour %s unreadable: %v", a, err)
		return false
	}
	s.nbAddr, s.nbOK = a, true
	return true
}

// fill copies the edges, then the corners, into the border of s.page at x.
func (s *stitcher) fill(x cubemap.Address) {
	f := cubemap.Root(x)
	for d := cubemap.North; d <= cubemap.West; d++ {
		g := cubemap.Neighbor(x, d)
		if !s.neighbour(g) {
			continue
		}
		if copyEdge(s.page, s.nb, d, cubemap.FaceTransform(f, cubemap.Root(g))) {
			s.result.Edges++
		}
	}
	for c := cubemap.NorthWest; c <= cubemap.SouthEast; c++ {
		g := cubemap.DiagonalNeighbor(x, c)
		if !s.neighbour(g) {
			continue
		}
		t := cubemap.FaceTransform(f, cubemap.Root(g))
		var ok bool
		if cubemap.AtVertex(x, c) {
			ok = copyVertexCorner(s.page, s.nb, x, g, c, t)
		} else {
			ok = copyCorner(s.page, s.nb, c, t)
		}
		if ok {
			s.result.Corners++
		}
	}
}
