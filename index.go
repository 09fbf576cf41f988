package bindex

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bindex/binning"
	"github.com/hupe1980/bindex/stream"
)

// Bin is one node of the binning hierarchy together with the chunks of
// records assigned to it. Bins are immutable after construction.
type Bin struct {
	id        uint32
	minOffset stream.Offset
	chunks    []stream.Chunk
}

// NewBin creates a Bin. It takes ownership of chunks; callers must not
// modify the slice afterwards.
func NewBin(id uint32, minOffset stream.Offset, chunks []stream.Chunk) Bin {
	return Bin{id: id, minOffset: minOffset, chunks: chunks}
}

// ID returns the bin id.
func (b Bin) ID() uint32 { return b.id }

// MinOffset returns the advisory minimum virtual offset of records in the
// bin's span. stream.OffsetUnset means no information.
func (b Bin) MinOffset() stream.Offset { return b.minOffset }

// Chunks returns the bin's chunks, ascending and coalesced. The returned
// slice is shared; callers must not modify it.
func (b Bin) Chunks() []stream.Chunk { return b.chunks }

// NumChunks returns the number of chunks in the bin.
func (b Bin) NumChunks() int { return len(b.chunks) }

// ReferenceStats summarizes the records indexed for one reference sequence.
type ReferenceStats struct {
	// MinOffset and MaxOffset bound the virtual offsets of the reference's
	// records in the underlying stream.
	MinOffset stream.Offset
	MaxOffset stream.Offset
	// Mapped and Unmapped count the records placed on the reference.
	Mapped   uint64
	Unmapped uint64
}

// ReferenceIndex holds the populated bins of one reference sequence.
// It is immutable after construction and safe for concurrent readers.
type ReferenceIndex struct {
	bins   map[uint32]Bin
	binIDs *roaring.Bitmap
	stats  *ReferenceStats
}

// NewReferenceIndex creates a ReferenceIndex from its populated bins.
// stats may be nil when no records were indexed for the reference.
func NewReferenceIndex(bins []Bin, stats *ReferenceStats) ReferenceIndex {
	m := make(map[uint32]Bin, len(bins))
	ids := roaring.New()
	for _, b := range bins {
		m[b.id] = b
		ids.Add(b.id)
	}
	ri := ReferenceIndex{bins: m, binIDs: ids}
	if stats != nil {
		s := *stats
		ri.stats = &s
	}
	return ri
}

// Bin returns the bin with the given id, if populated.
func (r ReferenceIndex) Bin(id uint32) (Bin, bool) {
	b, ok := r.bins[id]
	return b, ok
}

// NumBins returns the number of populated bins.
func (r ReferenceIndex) NumBins() int {
	return len(r.bins)
}

// BinIDs returns the populated bin ids in ascending order.
func (r ReferenceIndex) BinIDs() []uint32 {
	if r.binIDs == nil {
		return nil
	}
	return r.binIDs.ToArray()
}

// Bins iterates the populated bins in ascending id order.
func (r ReferenceIndex) Bins() iter.Seq[Bin] {
	return func(yield func(Bin) bool) {
		if r.binIDs == nil {
			return
		}
		it := r.binIDs.Iterator()
		for it.HasNext() {
			if !yield(r.bins[it.Next()]) {
				return
			}
		}
	}
}

// Stats returns the reference's record statistics. ok is false when no
// records were indexed for the reference.
func (r ReferenceIndex) Stats() (ReferenceStats, bool) {
	if r.stats == nil {
		return ReferenceStats{}, false
	}
	return *r.stats, true
}

// Index is a complete binning index over a coordinate-sorted record stream.
// It is immutable and safe for concurrent queries without synchronization.
type Index struct {
	scheme   binning.Scheme
	aux      []byte
	refs     []ReferenceIndex
	unplaced uint64

	logger  *Logger
	metrics MetricsCollector
}

// NewIndex assembles an Index from already-built reference indexes. It takes
// ownership of aux and refs.
func NewIndex(scheme binning.Scheme, aux []byte, refs []ReferenceIndex, unplaced uint64, optFns ...Option) *Index {
	o := applyOptions(optFns)
	return &Index{
		scheme:   scheme,
		aux:      aux,
		refs:     refs,
		unplaced: unplaced,
		logger:   o.logger,
		metrics:  o.metricsCollector,
	}
}

// Scheme returns the index's binning scheme.
func (x *Index) Scheme() binning.Scheme { return x.scheme }

// MinShift returns the log2 width of a leaf bin.
func (x *Index) MinShift() int { return x.scheme.MinShift }

// Depth returns the number of bin levels below the root.
func (x *Index) Depth() int { return x.scheme.Depth }

// Aux returns the opaque auxiliary payload carried by the index. The returned
// slice is shared; callers must not modify it.
func (x *Index) Aux() []byte { return x.aux }

// NumReferences returns the number of reference sequences.
func (x *Index) NumReferences() int { return len(x.refs) }

// Reference returns the index of the given reference sequence.
func (x *Index) Reference(id int) (ReferenceIndex, error) {
	if id < 0 || id >= len(x.refs) {
		return ReferenceIndex{}, &ErrUnknownReference{ID: id, NumReferences: len(x.refs)}
	}
	return x.refs[id], nil
}

// Unplaced returns the count of records without a placement.
func (x *Index) Unplaced() uint64 {
	return x.unplaced
}
