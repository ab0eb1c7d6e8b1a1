// Package mipmap fills in missing interior pages of a pyramid from their
// children.
package mipmap

import (
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/tilestore"
)

var ErrOddTileSize = errors.New("the tile size must be even to box filter children into a parent")

type Result struct {
	Copied      int
	Synthesized int
	// Unreadable counts pages and children that could not be read and were
	// treated as absent.
	Unreadable int
}

// Done reports whether the pass found nothing left to synthesize.
func (r Result) Done() bool { return r.Synthesized == 0 }

type Options struct {
	Log logger.Logger
	// Copy writes every readable input page to the output ahead of the
	// synthesized ones, so the output of one pass is the input of the next.
	Copy bool
}

type Option func(*Options)

func WithLogger(log logger.Logger) Option {
	return func(opts *Options) {
		opts.Log = log
	}
}

func WithoutCopy() Option {
	return func(opts *Options) {
		opts.Copy = false
	}
}

// Synthesize runs one pass over in. Every absent page with at least one
// present child is built by averaging each 2x2 block of the children into one
// parent sample, each child weighted 1/4. Absent children contribute zero, so
// partially covered parents are biased towards zero rather than renormalized
// over the children present.
//
// Only one missing level is filled per pass. Repeat until Done.
func Synthesize(in tilestore.Reader, out tilestore.Appender, opts ...Option) (Result, error) {
	options := Options{Copy: true}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Log == nil {
		options.Log = logger.Sugar.WithServiceName("mipmap")
	}
	log := options.Log

	params := in.Params()
	if err := tilestore.CheckPaired(params, out.Params()); err != nil {
		return Result{}, err
	}
	if params.TileSize%2 != 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrOddTileSize, params.TileSize)
	}

	cat, err := tilestore.Scan(in, log, tilestore.WithDenseIndex())
	if err != nil {
		return Result{}, err
	}

	var result Result
	w := tilestore.NewChainWriter(out)
	child := tilestore.NewParamsPage(params)
	parent := tilestore.NewParamsPage(params)

	if options.Copy {
		for _, e := range cat.Entries() {
			if err := in.ReadPage(e.Offset, child); err != nil {
				log.Infof("mipmap: skipping unreadable page %s: %v", e.Address, err)
				result.Unreadable++
				continue
			}
			if err := w.Append(e.Address, child); err != nil {
				return result, fmt.Errorf("mipmap: copy %s: %w", e.Address, err)
			}
			result.Copied++
		}
	}

	if cat.Empty() || cat.Depth() == 0 {
		log.Infof("mipmap: nothing above the leaves, %d copied", result.Copied)
		return result, nil
	}

	for _, x := range candidates(cat) {
		children := cubemap.Children(x)
		parent.Clear()
		added := 0
		for k, c := range children {
			offset := cat.Find(c)
			if offset == tilestore.NoOffset {
				continue
			}
			if err := in.ReadPage(offset, child); err != nil {
				log.Infof("mipmap: child %s of %s unreadable: %v", c, x, err)
				result.Unreadable++
				continue
			}
			accumulate(parent, child, k)
			added++
		}
		if added == 0 {
			continue
		}
		if err := w.Append(x, parent); err != nil {
			return result, fmt.Errorf("mipmap: append %s: %w", x, err)
		}
		result.Synthesized++
	}
	log.Infof("mipmap: %d synthesized, %d copied, %d unreadable", result.Synthesized, result.Copied, result.Unreadable)
	return result, nil
}

// candidates returns the absent parents of present pages in address order.
// Children of one parent are contiguous and parents of a level precede those
// of the next, so walking the sorted entries yields ascending parents.
func candidates(cat *tilestore.Catalog) []cubemap.Address {
	var parents []cubemap.Address
	for _, e := range cat.Entries() {
		if cubemap.Level(e.Address) == 0 {
			continue
		}
		x := cubemap.Parent(e.Address)
		if n := len(parents); n > 0 && parents[n-1] == x {
			continue
		}
		if cat.Has(x) {
			continue
		}
		parents = append(parents, x)
	}
	return parents
}

// accumulate adds a quarter of each interior sample of child, quadrant k, to
// the matching sample of parent.
func accumulate(parent, child *tilestore.Page, k int) {
	n := child.N
	h := n / 2
	ki, kj := k>>1, k&1
	for qi := 0; qi < n; qi++ {
		pi := qi/2 + ki*h
		for qj := 0; qj < n; qj++ {
			pj := qj/2 + kj*h
			d := parent.Interior(pi, pj)
			for c, v := range child.Interior(qi, qj) {
				d[c] += v / 4
			}
		}
	}
}
