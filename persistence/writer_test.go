package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/binning"
	"github.com/hupe1980/bindex/stream"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestWriteIndexGolden(t *testing.T) {
	scheme := binning.Default
	bin := bindex.NewBin(4681, 0x1000, []stream.Chunk{{Start: 0x1000, End: 0x2000}})
	stats := &bindex.ReferenceStats{MinOffset: 0x1000, MaxOffset: 0x2000, Mapped: 1, Unmapped: 0}
	ref := bindex.NewReferenceIndex([]bindex.Bin{bin}, stats)
	idx := bindex.NewIndex(scheme, []byte("aux"), []bindex.ReferenceIndex{ref}, 5)

	want := cat(
		u32(Magic),
		u32(14), u32(5),
		u32(3), []byte("aux"),
		u32(1), // references
		u32(2), // bins, statistics pseudo-bin included
		u32(4681), u64(0x1000), u32(1), u64(0x1000), u64(0x2000),
		u32(scheme.StatsBinID()), u64(uint64(stream.OffsetUnset)), u32(2),
		u64(0x1000), u64(0x2000), u64(1), u64(0),
		u64(5), // unplaced
	)

	got := encode(t, idx)
	assert.Equal(t, want, got)
	assert.Equal(t, []byte("CSI\x01"), got[:4])
}

func TestWriteIndexDeterministic(t *testing.T) {
	idx := buildTestIndex(t)

	first := encode(t, idx)
	second := encode(t, idx)
	assert.Equal(t, first, second)

	// Decoding and re-encoding must reproduce the same bytes.
	decoded, err := Read(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, first, encode(t, decoded))
}

type failingWriter struct {
	limit int
	n     int
}

var errSink = errors.New("sink failed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		allowed := w.limit - w.n
		w.n += allowed
		return allowed, errSink
	}
	w.n += len(p)
	return len(p), nil
}

func TestWriteIndexWriterError(t *testing.T) {
	idx := buildTestIndex(t)
	full := encode(t, idx)

	for _, limit := range []int{0, 4, 16, 40, len(full) - 1} {
		w := NewWriter(&failingWriter{limit: limit})
		err := w.WriteIndex(idx)
		require.ErrorIs(t, err, errSink, "limit %d", limit)
		assert.NotErrorIs(t, err, ErrFormat, "limit %d", limit)
		assert.LessOrEqual(t, w.BytesWritten(), int64(limit), "limit %d", limit)
	}
}
