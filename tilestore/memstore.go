package tilestore

import (
	"fmt"

	"github.com/forestrie/go-cubetiles/cubemap"
)

// MemStore keeps exact copies of appended pages in memory. Offsets are the
// one based position of the record, so NoOffset is never issued.
type MemStore struct {
	params  Params
	entries []Entry
	pages   []*Page
	stats   Stats
}

func NewMemStore(params Params) (*MemStore, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &MemStore{params: params, stats: NewStats(params.Channels)}, nil
}

func (s *MemStore) Params() Params { return s.params }

func (s *MemStore) SetDescription(description string) {
	s.params.Description = description
}

func (s *MemStore) Len() int { return len(s.pages) }

func (s *MemStore) Stats() Stats { return s.stats }

func (s *MemStore) ScanCatalog() ([]Entry, error) {
	return append([]Entry(nil), s.entries...), nil
}

func (s *MemStore) ReadPage(offset uint64, page *Page) error {
	if offset == NoOffset || offset > uint64(len(s.pages)) {
		return fmt.Errorf("%w: %d", ErrOffsetInvalid, offset)
	}
	if err := page.fits(s.params); err != nil {
		return err
	}
	return page.CopyFrom(s.pages[offset-1])
}

func (s *MemStore) Append(prior uint64, addr cubemap.Address, page *Page) (uint64, error) {
	if last := uint64(len(s.pages)); prior != last {
		return NoOffset, fmt.Errorf("%w: got %d, last %d", ErrChainBroken, prior, last)
	}
	if !cubemap.Valid(addr) {
		return NoOffset, fmt.Errorf("%w: %d", ErrAddressInvalid, addr)
	}
	if err := page.fits(s.params); err != nil {
		return NoOffset, err
	}
	q := NewParamsPage(s.params)
	copy(q.Data, page.Data)
	s.pages = append(s.pages, q)
	offset := uint64(len(s.pages))
	s.entries = append(s.entries, Entry{Address: addr, Offset: offset})
	s.stats.Add(page)
	return offset, nil
}

// Page returns the first page appended for addr, or nil. Like Scan, the
// first record for an address wins.
func (s *MemStore) Page(addr cubemap.Address) *Page {
	for k := range s.entries {
		if s.entries[k].Address == addr {
			return s.pages[k]
		}
	}
	return nil
}

// LastOffset returns the offset of the most recent record, the prior for the
// next Append.
func (s *MemStore) LastOffset() uint64 { return uint64(len(s.pages)) }
