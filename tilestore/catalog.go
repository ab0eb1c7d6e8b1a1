package tilestore

import (
	"sort"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// Catalog maps page addresses to record offsets. It is built by one scan of a
// store and is read only afterwards. Absent pages map to NoOffset.
type Catalog struct {
	entries []Entry // sorted by address
	depth   int

	// exactly one of dense and sparse is populated
	dense  []uint64
	sparse map[cubemap.Address]uint64

	Skipped int
}

// MaxDenseDepth is the deepest catalog indexed densely. A dense index to depth
// d holds PageCount(d) offsets, 64MiB at this depth.
const MaxDenseDepth = 10

type CatalogOptions struct {
	Dense bool
	// MaxDepth rejects entries deeper than this when >= 0.
	MaxDepth int
}

type CatalogOption func(*CatalogOptions)

// WithDenseIndex indexes the catalog with a flat slice covering every address
// up to the deepest present level. Suited to passes that visit whole levels.
// Catalogs deeper than MaxDenseDepth are indexed sparsely regardless.
func WithDenseIndex() CatalogOption {
	return func(opts *CatalogOptions) {
		opts.Dense = true
	}
}

// WithMaxDepth skips entries deeper than depth.
func WithMaxDepth(depth int) CatalogOption {
	return func(opts *CatalogOptions) {
		opts.MaxDepth = depth
	}
}

// Scan builds the catalog of r. Entries with out of range addresses or offsets
// and repeated addresses are skipped with a diagnostic, the first record for an
// address wins.
func Scan(r Reader, log logger.Logger, opts ...CatalogOption) (*Catalog, error) {
	options := CatalogOptions{MaxDepth: -1}
	for _, opt := range opts {
		opt(&options)
	}

	found, err := r.ScanCatalog()
	if err != nil {
		return nil, err
	}

	c := &Catalog{}
	seen := make(map[cubemap.Address]bool, len(found))
	for _, e := range found {
		if !cubemap.Valid(e.Address) || e.Offset == NoOffset {
			log.Infof("catalog: skipping invalid entry address=%d offset=%d", e.Address, e.Offset)
			c.Skipped++
			continue
		}
		if options.MaxDepth >= 0 && cubemap.Level(e.Address) > options.MaxDepth {
			log.Infof("catalog: skipping page %s deeper than %d", e.Address, options.MaxDepth)
			c.Skipped++
			continue
		}
		if seen[e.Address] {
			log.Infof("catalog: skipping duplicate page %s at offset %d", e.Address, e.Offset)
			c.Skipped++
			continue
		}
		seen[e.Address] = true
		c.entries = append(c.entries, e)
		if l := cubemap.Level(e.Address); l > c.depth {
			c.depth = l
		}
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Address < c.entries[j].Address })

	if options.Dense && c.depth > MaxDenseDepth {
		log.Infof("catalog: depth %d is beyond %d, using a sparse index", c.depth, MaxDenseDepth)
		options.Dense = false
	}
	if options.Dense {
		c.dense = make([]uint64, cubemap.PageCount(c.depth))
		for _, e := range c.entries {
			c.dense[e.Address] = e.Offset
		}
	} else {
		c.sparse = make(map[cubemap.Address]uint64, len(c.entries))
		for _, e := range c.entries {
			c.sparse[e.Address] = e.Offset
		}
	}
	log.Debugf("catalog: %d pages to depth %d, %d skipped", len(c.entries), c.depth, c.Skipped)
	return c, nil
}

// Find returns the offset of the page at a, or NoOffset.
func (c *Catalog) Find(a cubemap.Address) uint64 {
	if c.dense != nil {
		if uint64(a) >= uint64(len(c.dense)) {
			return NoOffset
		}
		return c.dense[a]
	}
	return c.sparse[a]
}

func (c *Catalog) Has(a cubemap.Address) bool { return c.Find(a) != NoOffset }

// Depth is the deepest level holding a page. An empty catalog has depth 0.
func (c *Catalog) Depth() int { return c.depth }

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) Empty() bool { return len(c.entries) == 0 }

// Entries returns the present pages in address order.
func (c *Catalog) Entries() []Entry { return c.entries }
