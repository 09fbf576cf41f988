package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bindex"
)

// header is a valid magic + default scheme + empty aux prefix for crafting
// malformed payloads.
func header() []byte {
	return cat(u32(Magic), u32(14), u32(5), u32(0))
}

func TestDecoderByteAtATime(t *testing.T) {
	idx := buildTestIndex(t)
	data := encode(t, idx)

	dec := NewDecoder()
	for i := range data {
		n, err := dec.Write(data[i : i+1])
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	got, err := dec.Index()
	require.NoError(t, err)
	assertIndexesEqual(t, idx, got)
	assert.Equal(t, int64(len(data)), dec.BytesRead())
}

func TestDecoderChunkedFeeds(t *testing.T) {
	idx := buildTestIndex(t)
	data := encode(t, idx)

	for _, size := range []int{2, 3, 5, 16, 64, 4096} {
		dec := NewDecoder()
		for off := 0; off < len(data); off += size {
			end := min(off+size, len(data))
			n, err := dec.Write(data[off:end])
			require.NoError(t, err, "feed size %d", size)
			require.Equal(t, end-off, n, "feed size %d", size)
		}

		got, err := dec.Index()
		require.NoError(t, err, "feed size %d", size)
		assertIndexesEqual(t, idx, got)
	}
}

func TestDecoderSuspendAndResume(t *testing.T) {
	idx := buildTestIndex(t)
	data := encode(t, idx)

	dec := NewDecoder()
	half := len(data) / 2
	_, err := dec.Write(data[:half])
	require.NoError(t, err)

	// Mid-stream the decoder exposes nothing.
	_, err = dec.Index()
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = dec.Write(data[half:])
	require.NoError(t, err)

	got, err := dec.Index()
	require.NoError(t, err)
	assertIndexesEqual(t, idx, got)
}

func TestReadTruncatedAtEveryCut(t *testing.T) {
	data := encode(t, buildTestIndex(t))

	for cut := 0; cut < len(data); cut++ {
		idx, err := Read(bytes.NewReader(data[:cut]))
		if cut == len(data)-8 {
			// The trailer is the one field older writers omit.
			require.NoError(t, err, "cut %d", cut)
			assert.Zero(t, idx.Unplaced(), "cut %d", cut)
			continue
		}
		assert.ErrorIs(t, err, ErrTruncated, "cut %d", cut)
		assert.ErrorIs(t, err, ErrFormat, "cut %d", cut)
	}
}

func TestReadMissingTrailer(t *testing.T) {
	full := buildTestIndex(t)
	data := encode(t, full)

	got, err := Read(bytes.NewReader(data[:len(data)-8]))
	require.NoError(t, err)

	refs := make([]bindex.ReferenceIndex, full.NumReferences())
	for i := range refs {
		refs[i], err = full.Reference(i)
		require.NoError(t, err)
	}
	want := bindex.NewIndex(full.Scheme(), full.Aux(), refs, 0)
	assertIndexesEqual(t, want, got)
}

func TestReadTrailingData(t *testing.T) {
	data := encode(t, buildTestIndex(t))

	_, err := Read(bytes.NewReader(append(data, 0x00)))
	assert.ErrorIs(t, err, ErrTrailingData)
}

func TestReadInvalidMagic(t *testing.T) {
	data := encode(t, buildTestIndex(t))
	data[0] ^= 0xFF

	_, err := Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidMagic)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDecoderMalformedInput(t *testing.T) {
	statsID := u32(37450)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "negative min shift",
			data: cat(u32(Magic), u32(0xFFFFFFFF), u32(5), u32(0)),
			want: ErrFormat,
		},
		{
			name: "scheme position overflow",
			data: cat(u32(Magic), u32(60), u32(5), u32(0)),
			want: ErrFormat,
		},
		{
			name: "negative aux length",
			data: cat(u32(Magic), u32(14), u32(5), u32(0xFFFFFFFF)),
			want: ErrInvalidCount,
		},
		{
			name: "negative reference count",
			data: cat(header(), u32(0xFFFFFFFF)),
			want: ErrInvalidCount,
		},
		{
			name: "negative bin count",
			data: cat(header(), u32(1), u32(0xFFFFFFFF)),
			want: ErrInvalidCount,
		},
		{
			name: "negative chunk count",
			data: cat(header(), u32(1), u32(1), u32(100), u64(0), u32(0x80000000)),
			want: ErrInvalidCount,
		},
		{
			name: "duplicate bin id",
			data: cat(header(), u32(1), u32(2),
				u32(100), u64(0), u32(0),
				u32(100), u64(0), u32(0)),
			want: ErrInvalidBin,
		},
		{
			name: "bin id exceeds scheme",
			data: cat(header(), u32(1), u32(1), u32(37449), u64(0), u32(0)),
			want: ErrInvalidBin,
		},
		{
			name: "statistics bin chunk count",
			data: cat(header(), u32(1), u32(1), statsID, u64(0), u32(3)),
			want: ErrInvalidBin,
		},
		{
			name: "duplicate statistics bin",
			data: cat(header(), u32(1), u32(2),
				statsID, u64(0), u32(2), u64(0), u64(0), u64(0), u64(0),
				statsID, u64(0), u32(2)),
			want: ErrInvalidBin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecoderErrorIsSticky(t *testing.T) {
	bad := cat(u32(0xDEADBEEF), u32(14))

	dec := NewDecoder()
	_, err := dec.Write(bad)
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, err = dec.Write(header())
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, err = dec.Index()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecoderZeroChunkBin(t *testing.T) {
	// Writers built here never emit chunkless bins, but the format admits
	// them and foreign writers produce them.
	data := cat(header(), u32(1), u32(1), u32(100), u64(0x42), u32(0), u64(0))

	idx, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	ref, err := idx.Reference(0)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.NumBins())

	bin, ok := ref.Bin(100)
	require.True(t, ok)
	assert.Empty(t, bin.Chunks())
}

func TestDecoderStatsBinAlone(t *testing.T) {
	data := cat(header(), u32(1), u32(1),
		u32(37450), u64(0), u32(2),
		u64(0x10), u64(0x20), u64(3), u64(4),
		u64(0))

	idx, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	ref, err := idx.Reference(0)
	require.NoError(t, err)
	assert.Equal(t, 0, ref.NumBins())

	stats, ok := ref.Stats()
	require.True(t, ok)
	assert.Equal(t, bindex.ReferenceStats{MinOffset: 0x10, MaxOffset: 0x20, Mapped: 3, Unmapped: 4}, stats)
}
