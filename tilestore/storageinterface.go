package tilestore

import "github.com/forestrie/go-cubetiles/cubemap"

// Reader is the read side of a tile store.
type Reader interface {
	Params() Params
	// ScanCatalog returns every well formed page record in storage order.
	// Duplicates and out of range addresses are returned as found, Scan
	// resolves them.
	ScanCatalog() ([]Entry, error)
	// ReadPage fills page from the record at offset.
	ReadPage(offset uint64, page *Page) error
}

// Appender is the write side of a tile store. Records are chained: prior must
// be the offset returned by the previous Append, or NoOffset for the first.
type Appender interface {
	Params() Params
	Append(prior uint64, addr cubemap.Address, page *Page) (uint64, error)
}

// ChainWriter tracks the prior offset so callers can append without doing so
// themselves.
type ChainWriter struct {
	Out   Appender
	Last  uint64
	Count int
}

func NewChainWriter(out Appender) *ChainWriter {
	return &ChainWriter{Out: out, Last: NoOffset}
}

func (w *ChainWriter) Append(addr cubemap.Address, page *Page) error {
	offset, err := w.Out.Append(w.Last, addr, page)
	if err != nil {
		return err
	}
	w.Last = offset
	w.Count++
	return nil
}
