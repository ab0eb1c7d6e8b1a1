package tilestore

// Page is an owned tile buffer: (n+2) x (n+2) samples in row major order,
// channels interleaved. Row and column 0 and n+1 are the border ring copied
// from neighbouring pages; the interior is [1, n] in both axes.
type Page struct {
	N        int
	Channels int
	Data     []float32
}

func NewPage(n, channels int) *Page {
	o := n + 2
	return &Page{N: n, Channels: channels, Data: make([]float32, o*o*channels)}
}

// NewParamsPage returns a page shaped for the store parameters.
func NewParamsPage(p Params) *Page { return NewPage(p.TileSize, p.Channels) }

// Padded is the side of the buffer including the border.
func (p *Page) Padded() int { return p.N + 2 }

// Index returns the offset in Data of the first channel of the sample at
// padded row i, column j.
func (p *Page) Index(i, j int) int {
	return (i*(p.N+2) + j) * p.Channels
}

// At returns the channels of the sample at padded row i, column j. The slice
// aliases the buffer.
func (p *Page) At(i, j int) []float32 {
	k := p.Index(i, j)
	return p.Data[k : k+p.Channels]
}

// Interior returns the channels of interior sample (r, c), r and c in [0, n).
func (p *Page) Interior(r, c int) []float32 {
	return p.At(r+1, c+1)
}

func (p *Page) Clear() {
	clear(p.Data)
}

// CopyFrom replaces the contents of p with those of q. The shapes must match.
func (p *Page) CopyFrom(q *Page) error {
	if p.N != q.N || p.Channels != q.Channels {
		return ErrPageSize
	}
	copy(p.Data, q.Data)
	return nil
}

func (p *Page) fits(params Params) error {
	if p.N != params.TileSize || p.Channels != params.Channels || len(p.Data) != params.PageLen() {
		return ErrPageSize
	}
	return nil
}
