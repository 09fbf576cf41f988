package persistence

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/stream"
)

// Writer serializes indexes to an io.Writer in the binary wire format.
// Output is deterministic: equal indexes produce identical bytes.
type Writer struct {
	w   io.Writer
	n   int64
	buf [8]byte
}

// NewWriter creates a Writer emitting to w. Wrap w in a bufio.Writer for
// unbuffered destinations.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// BytesWritten returns the number of bytes emitted so far.
func (w *Writer) BytesWritten() int64 {
	return w.n
}

// WriteIndex serializes one complete index. Bins are emitted in ascending id
// order with the statistics pseudo-bin last per reference.
func (w *Writer) WriteIndex(idx *bindex.Index) error {
	scheme := idx.Scheme()
	aux := idx.Aux()

	if err := w.writeUint32(Magic); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(scheme.MinShift)); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(scheme.Depth)); err != nil {
		return err
	}
	if err := w.writeCount(len(aux)); err != nil {
		return err
	}
	if err := w.writeBytes(aux); err != nil {
		return err
	}
	if err := w.writeCount(idx.NumReferences()); err != nil {
		return err
	}

	for i := 0; i < idx.NumReferences(); i++ {
		ref, err := idx.Reference(i)
		if err != nil {
			return err
		}
		if err := w.writeReference(scheme.StatsBinID(), ref); err != nil {
			return err
		}
	}

	return w.writeUint64(idx.Unplaced())
}

func (w *Writer) writeReference(statsBinID uint32, ref bindex.ReferenceIndex) error {
	stats, hasStats := ref.Stats()

	numBins := ref.NumBins()
	if hasStats {
		numBins++
	}
	if err := w.writeCount(numBins); err != nil {
		return err
	}

	for bin := range ref.Bins() {
		if err := w.writeBin(bin); err != nil {
			return err
		}
	}

	if hasStats {
		if err := w.writeUint32(statsBinID); err != nil {
			return err
		}
		if err := w.writeUint64(uint64(stream.OffsetUnset)); err != nil {
			return err
		}
		if err := w.writeCount(2); err != nil {
			return err
		}
		for _, v := range []uint64{uint64(stats.MinOffset), uint64(stats.MaxOffset), stats.Mapped, stats.Unmapped} {
			if err := w.writeUint64(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeBin(bin bindex.Bin) error {
	if err := w.writeUint32(bin.ID()); err != nil {
		return err
	}
	if err := w.writeUint64(uint64(bin.MinOffset())); err != nil {
		return err
	}
	chunks := bin.Chunks()
	if err := w.writeCount(len(chunks)); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := w.writeUint64(uint64(c.Start)); err != nil {
			return err
		}
		if err := w.writeUint64(uint64(c.End)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCount(n int) error {
	if n > math.MaxInt32 {
		return ErrIndexTooLarge
	}
	return w.writeUint32(uint32(n))
}

func (w *Writer) writeUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.writeBytes(w.buf[:4])
}

func (w *Writer) writeUint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.writeBytes(w.buf[:8])
}

func (w *Writer) writeBytes(p []byte) error {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return err
}
