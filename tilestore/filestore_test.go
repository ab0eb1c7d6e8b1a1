package tilestore

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-cubetiles/cubemap"
)

func testLogger() logger.Logger {
	logger.New("NOOP")
	return logger.Sugar.WithServiceName("tilestore")
}

// rampPage fills every sample, border included, with a distinct value in
// [0, 1] (or [-1, 1] when signed).
func rampPage(params Params, seed int) *Page {
	p := NewParamsPage(params)
	for k := range p.Data {
		v := float32((k*7+seed*13)%255) / 255
		if params.Signed && k%2 == 1 {
			v = -v
		}
		p.Data[k] = v
	}
	return p
}

func TestFileStoreRoundTrip(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	tests := []struct {
		bits      int
		signed    bool
		tolerance float64
	}{
		{8, false, 0.5 / 255},
		{8, true, 0.5 / 127},
		{16, false, 0.5 / 65535},
		{16, true, 0.5 / 32767},
		{32, false, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("bits %d signed %v", tt.bits, tt.signed), func(t *testing.T) {
			params := Params{TileSize: 4, Channels: 3, Bits: tt.bits, Signed: tt.signed, Description: "ramp"}
			path := filepath.Join(t.TempDir(), "ramp.scm")

			w, err := Create(log, path, params)
			require.NoError(t, err)
			prior := NoOffset
			var written []*Page
			for k, a := range []cubemap.Address{0, 7, 35} {
				p := rampPage(params, k)
				prior, err = w.Append(prior, a, p)
				require.NoError(t, err)
				written = append(written, p)
			}
			require.NoError(t, w.Close())

			r, err := OpenRead(log, path)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, w.ID(), r.ID())
			assert.Equal(t, uuid.Nil, r.SourceID())
			assert.Equal(t, "ramp", r.Params().Description)

			entries, err := r.ScanCatalog()
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, cubemap.Address(35), entries[2].Address)

			got := NewParamsPage(params)
			for k, e := range entries {
				require.NoError(t, r.ReadPage(e.Offset, got))
				for i := range got.Data {
					require.InDelta(t, written[k].Data[i], got.Data[i], tt.tolerance+1e-7)
				}
			}
		})
	}
}

func TestFileStoreChain(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	params := Params{TileSize: 2, Channels: 1, Bits: 8}
	path := filepath.Join(t.TempDir(), "chain.scm")
	w, err := Create(log, path, params)
	require.NoError(t, err)
	defer w.Close()

	p := NewParamsPage(params)
	first, err := w.Append(NoOffset, 0, p)
	require.NoError(t, err)
	assert.Equal(t, uint64(HeaderSize), first)

	_, err = w.Append(NoOffset, 1, p)
	assert.ErrorIs(t, err, ErrChainBroken)

	_, err = w.Append(first, cubemap.Address(cubemap.PageCount(cubemap.MaxDepth)), p)
	assert.ErrorIs(t, err, ErrAddressInvalid)

	_, err = w.Append(first, 1, NewPage(3, 1))
	assert.ErrorIs(t, err, ErrPageSize)

	second, err := w.Append(first, 1, p)
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestFileStoreReadOnly(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	params := Params{TileSize: 2, Channels: 1, Bits: 8}
	path := filepath.Join(t.TempDir(), "ro.scm")
	w, err := Create(log, path, params)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenRead(log, path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Append(NoOffset, 0, NewParamsPage(params))
	assert.ErrorIs(t, err, ErrNotAppendable)
}

func TestFileStoreDamage(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	params := Params{TileSize: 2, Channels: 1, Bits: 16}
	path := filepath.Join(t.TempDir(), "damaged.scm")
	w, err := Create(log, path, params)
	require.NoError(t, err)
	prior := NoOffset
	var offsets []uint64
	for k := 0; k < 3; k++ {
		prior, err = w.Append(prior, cubemap.Address(k), rampPage(params, k))
		require.NoError(t, err)
		offsets = append(offsets, prior)
	}
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	// break the checksum of the first payload and the type of the third
	// record header
	_, err = f.WriteAt([]byte{0xff, 0xff}, int64(offsets[0]+RecordHeaderSize))
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0x7f}, int64(offsets[2]))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := OpenRead(log, path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.ScanCatalog()
	require.NoError(t, err)
	require.Len(t, entries, 2, "records after the damaged header are absent")

	page := NewParamsPage(params)
	assert.ErrorIs(t, r.ReadPage(entries[0].Offset, page), ErrCorruptPage)
	assert.NoError(t, r.ReadPage(entries[1].Offset, page))
	assert.ErrorIs(t, r.ReadPage(NoOffset, page), ErrOffsetInvalid)

	// the metadata record followed the damage, so it is lost too
	_, err = r.Metadata()
	assert.ErrorIs(t, err, ErrNoMetadata)

	_, err = OpenAppend(log, path)
	assert.ErrorIs(t, err, ErrRecordHeader)
}

func TestFileStoreMetadata(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	params := Params{TileSize: 2, Channels: 2, Bits: 32, Description: "first"}
	path := filepath.Join(t.TempDir(), "meta.scm")
	source := uuid.New()
	w, err := Create(log, path, params, WithSourceID(source))
	require.NoError(t, err)

	p := NewParamsPage(params)
	for k := range p.Data {
		p.Data[k] = 0.5
	}
	p.Interior(0, 0)[0] = -2
	p.Interior(1, 1)[1] = 3
	// border samples do not count
	p.At(0, 0)[0] = 100
	_, err = w.Append(NoOffset, 4, p)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenRead(log, path)
	require.NoError(t, err)
	m, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "first", m.Description)
	assert.Equal(t, []float32{-2, 0.5}, m.Min)
	assert.Equal(t, []float32{0.5, 3}, m.Max)
	assert.Equal(t, uint64(1), m.Pages)
	assert.Equal(t, source, r.SourceID())
	require.NoError(t, r.Close())

	a, err := OpenAppend(log, path)
	require.NoError(t, err)
	a.SetDescription("second")
	require.NoError(t, a.Close())

	r, err = OpenRead(log, path)
	require.NoError(t, err)
	defer r.Close()
	m, err = r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "second", m.Description)
	assert.Equal(t, []float32{-2, 0.5}, m.Min)
	assert.Equal(t, uint64(1), m.Pages)
	entries, err := r.ScanCatalog()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreBadHeader(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	path := filepath.Join(t.TempDir(), "bad.scm")
	require.NoError(t, os.WriteFile(path, []byte("not a store"), 0o644))
	_, err := OpenRead(log, path)
	assert.ErrorIs(t, err, ErrHeaderMissing)

	b := Header{Version: HeaderCurrentVersion, Params: Params{TileSize: 2, Channels: 1, Bits: 8}}.MarshalBinary()
	b[0] = 'X'
	require.NoError(t, os.WriteFile(path, b, 0o644))
	_, err = OpenRead(log, path)
	assert.ErrorIs(t, err, ErrHeaderBadMagic)
}

func TestFileStoreDiscard(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	dir := t.TempDir()
	path := filepath.Join(dir, "partial.scm")
	w, err := Create(log, path, Params{TileSize: 2, Channels: 1, Bits: 8})
	require.NoError(t, err)
	_, err = w.Append(NoOffset, 0, NewParamsPage(w.Params()))
	require.NoError(t, err)
	require.NoError(t, w.Discard())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left, "no temporary file is left behind")
}

func TestFileStoreReplacedOnClose(t *testing.T) {
	log := testLogger()
	defer logger.OnExit()

	dir := t.TempDir()
	path := filepath.Join(dir, "store.scm")
	params := Params{TileSize: 2, Channels: 1, Bits: 8}

	w, err := Create(log, path, params)
	require.NoError(t, err)
	assert.NoFileExists(t, path, "nothing is published before close")
	_, err = w.Append(NoOffset, 0, rampPage(params, 1))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.FileExists(t, path)

	// a second store for the same path leaves the first readable until it
	// is closed
	w, err = Create(log, path, params)
	require.NoError(t, err)
	r, err := OpenRead(log, path)
	require.NoError(t, err)
	entries, err := r.ScanCatalog()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.NoError(t, r.Close())
	require.NoError(t, w.Close())

	r, err = OpenRead(log, path)
	require.NoError(t, err)
	defer r.Close()
	entries, err = r.ScanCatalog()
	require.NoError(t, err)
	assert.Empty(t, entries)
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
