package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/stream"
)

// buildTestIndex returns an index exercising the interesting wire shapes: a
// reference with several bins and mixed mapped/unmapped records, an empty
// reference, a sparse reference, an aux payload, and unplaced records.
func buildTestIndex(t *testing.T) *bindex.Index {
	t.Helper()

	b := bindex.NewBuilder()
	require.NoError(t, b.SetReferenceCount(3))
	b.SetAux([]byte("reference registry"))

	require.NoError(t, b.AddRecord(0, 100, 200, true, stream.Chunk{Start: 0x10000, End: 0x1F000}))
	require.NoError(t, b.AddRecord(0, 150, 250, true, stream.Chunk{Start: 0x1F000, End: 0x2A000}))
	require.NoError(t, b.AddRecord(0, 40000, 41000, false, stream.Chunk{Start: 0x2A000, End: 0x30000}))

	// Reference 1 stays empty.

	require.NoError(t, b.AddRecord(2, 1<<20, 1<<20+500, true, stream.Chunk{Start: 0x100000, End: 0x110000}))
	require.NoError(t, b.AddRecord(2, 1<<25, 1<<25+100, true, stream.Chunk{Start: 0x200000, End: 0x210000}))

	for range 7 {
		require.NoError(t, b.AddRecord(-1, 0, 0, false, stream.Chunk{}))
	}

	idx, err := b.Build()
	require.NoError(t, err)
	return idx
}

func encode(t *testing.T, idx *bindex.Index) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteIndex(idx))
	require.Equal(t, int64(buf.Len()), w.BytesWritten())
	return buf.Bytes()
}

func assertIndexesEqual(t *testing.T, want, got *bindex.Index) {
	t.Helper()

	assert.Equal(t, want.Scheme(), got.Scheme())
	assert.Equal(t, want.Aux(), got.Aux())
	assert.Equal(t, want.Unplaced(), got.Unplaced())
	require.Equal(t, want.NumReferences(), got.NumReferences())

	for id := 0; id < want.NumReferences(); id++ {
		wantRef, err := want.Reference(id)
		require.NoError(t, err)
		gotRef, err := got.Reference(id)
		require.NoError(t, err)

		require.Equal(t, wantRef.BinIDs(), gotRef.BinIDs(), "reference %d", id)
		for _, binID := range wantRef.BinIDs() {
			wantBin, _ := wantRef.Bin(binID)
			gotBin, ok := gotRef.Bin(binID)
			require.True(t, ok, "reference %d bin %d", id, binID)
			assert.Equal(t, wantBin.MinOffset(), gotBin.MinOffset(), "reference %d bin %d min offset", id, binID)
			assert.Equal(t, wantBin.Chunks(), gotBin.Chunks(), "reference %d bin %d chunks", id, binID)
		}

		wantStats, wantOK := wantRef.Stats()
		gotStats, gotOK := gotRef.Stats()
		require.Equal(t, wantOK, gotOK, "reference %d stats presence", id)
		if wantOK {
			assert.Equal(t, wantStats, gotStats, "reference %d stats", id)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	idx := buildTestIndex(t)

	got, err := Read(bytes.NewReader(encode(t, idx)))
	require.NoError(t, err)
	assertIndexesEqual(t, idx, got)
}

func TestRoundTripEmptyIndex(t *testing.T) {
	b := bindex.NewBuilder()
	require.NoError(t, b.SetReferenceCount(0))
	for range 3 {
		require.NoError(t, b.AddRecord(-1, 0, 0, false, stream.Chunk{}))
	}
	idx, err := b.Build()
	require.NoError(t, err)

	got, err := Read(bytes.NewReader(encode(t, idx)))
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumReferences())
	assert.Equal(t, uint64(3), got.Unplaced())
	assert.Empty(t, got.Aux())
}

func TestRoundTripQueryEquivalence(t *testing.T) {
	idx := buildTestIndex(t)

	got, err := Read(bytes.NewReader(encode(t, idx)))
	require.NoError(t, err)

	regions := []struct {
		ref        int
		start, end int64
	}{
		{0, 0, 50000},
		{0, 120, 130},
		{1, 0, 1000},
		{2, 1 << 20, 1<<20 + 1},
		{2, 0, 1 << 26},
	}

	for _, region := range regions {
		want, err := idx.Query(region.ref, region.start, region.end)
		require.NoError(t, err)
		have, err := got.Query(region.ref, region.start, region.end)
		require.NoError(t, err)
		assert.Equal(t, want, have, "query %d:[%d,%d)", region.ref, region.start, region.end)
	}
}
