package bindex

import (
	"fmt"
	"time"

	"github.com/hupe1980/bindex/binning"
	"github.com/hupe1980/bindex/stream"
)

// Builder accumulates coordinate-sorted records into an Index.
//
// Records must be added in non-decreasing (reference id, start) order, with
// unplaced records strictly last. A Builder is single-use: after Build it
// rejects all further calls. It is not safe for concurrent use.
type Builder struct {
	scheme  binning.Scheme
	logger  *Logger
	metrics MetricsCollector

	refs      []*refBuilder
	haveCount bool
	aux       []byte
	unplaced  uint64
	records   uint64

	lastRef     int
	lastStart   int64
	sawUnplaced bool
	finished    bool
}

// NewBuilder creates a Builder. The binning scheme defaults to
// binning.Default and can be changed with WithScheme.
func NewBuilder(optFns ...Option) *Builder {
	o := applyOptions(optFns)
	return &Builder{
		scheme:  o.scheme,
		logger:  o.logger,
		metrics: o.metricsCollector,
		lastRef: -1,
	}
}

// Scheme returns the builder's binning scheme.
func (b *Builder) Scheme() binning.Scheme {
	return b.scheme
}

// SetReferenceCount declares the number of reference sequences. It must be
// called once, before any placed record is added; reference ids of later
// records must be in [0, n).
func (b *Builder) SetReferenceCount(n int) error {
	if b.finished {
		return ErrBuilderFinished
	}
	if b.haveCount {
		return ErrReferenceCountSet
	}
	if n < 0 {
		return fmt.Errorf("negative reference count: %d", n)
	}
	b.refs = make([]*refBuilder, n)
	for i := range b.refs {
		b.refs[i] = newRefBuilder()
	}
	b.haveCount = true
	return nil
}

// SetAux attaches an opaque auxiliary payload to the built index. The payload
// is carried through serialization unchanged and never interpreted.
func (b *Builder) SetAux(aux []byte) {
	b.aux = append([]byte(nil), aux...)
}

// AddRecord indexes one record: its half-open position interval [start, end)
// on the reference with id refID, and the chunk of virtual offsets its bytes
// occupy. mapped distinguishes placed-but-unmapped records in the
// per-reference statistics.
//
// A refID < 0 marks an unplaced record: the global unplaced counter is
// bumped and every other argument is ignored.
//
// An empty chunk (Start == End) updates the statistics but contributes no
// chunk to the index.
func (b *Builder) AddRecord(refID int, start, end int64, mapped bool, c stream.Chunk) error {
	if b.finished {
		return ErrBuilderFinished
	}
	if refID < 0 {
		b.sawUnplaced = true
		b.unplaced++
		b.records++
		return nil
	}
	if b.sawUnplaced {
		return &ErrOutOfOrder{RefID: refID, Start: start, LastRefID: UnplacedReferenceID}
	}
	if refID >= len(b.refs) {
		return &ErrUnknownReference{ID: refID, NumReferences: len(b.refs)}
	}
	if refID < b.lastRef || (refID == b.lastRef && start < b.lastStart) {
		return &ErrOutOfOrder{RefID: refID, Start: start, LastRefID: b.lastRef, LastStart: b.lastStart}
	}
	if err := b.scheme.ValidateInterval(start, end); err != nil {
		return err
	}
	if c.End < c.Start {
		return &ErrInvalidChunk{Chunk: c}
	}

	b.refs[refID].add(b.scheme, start, end, mapped, c)
	b.lastRef, b.lastStart = refID, start
	b.records++
	return nil
}

// Build finalizes the index: per-bin chunks are coalesced, minimum-offset
// hints resolved, and bins without chunks pruned. The Builder is unusable
// afterwards.
func (b *Builder) Build() (*Index, error) {
	began := time.Now()
	if b.finished {
		return nil, ErrBuilderFinished
	}
	b.finished = true

	refs := make([]ReferenceIndex, len(b.refs))
	for i, rb := range b.refs {
		refs[i] = rb.build(b.scheme)
	}
	idx := &Index{
		scheme:   b.scheme,
		aux:      b.aux,
		refs:     refs,
		unplaced: b.unplaced,
		logger:   b.logger,
		metrics:  b.metrics,
	}

	b.logger.LogBuild(b.records, len(refs), nil)
	b.metrics.RecordBuild(b.records, time.Since(began), nil)
	return idx, nil
}

// refBuilder accumulates the bins and statistics of one reference sequence.
type refBuilder struct {
	bins map[uint32]*binBuilder
	// linear holds the minimum chunk start seen per leaf window; zero values
	// mean no information yet and are forward-filled at build time.
	linear     []stream.Offset
	stats      ReferenceStats
	hasRecords bool
	hasOffsets bool
}

type binBuilder struct {
	id     uint32
	chunks []stream.Chunk
}

func newRefBuilder() *refBuilder {
	return &refBuilder{bins: make(map[uint32]*binBuilder)}
}

func (rb *refBuilder) add(s binning.Scheme, start, end int64, mapped bool, c stream.Chunk) {
	rb.hasRecords = true
	if mapped {
		rb.stats.Mapped++
	} else {
		rb.stats.Unmapped++
	}
	if c.Empty() {
		return
	}

	if !rb.hasOffsets || c.Start < rb.stats.MinOffset {
		rb.stats.MinOffset = c.Start
	}
	if c.End > rb.stats.MaxOffset {
		rb.stats.MaxOffset = c.End
	}
	rb.hasOffsets = true

	// The interval was validated by the caller; Bin cannot fail here.
	id, _ := s.Bin(start, end)
	bb := rb.bins[id]
	if bb == nil {
		bb = &binBuilder{id: id}
		rb.bins[id] = bb
	}
	// Records arrive position-sorted, so most chunks extend the last one.
	if n := len(bb.chunks); n > 0 && c.Start <= bb.chunks[n-1].End {
		if c.End > bb.chunks[n-1].End {
			bb.chunks[n-1].End = c.End
		}
	} else {
		bb.chunks = append(bb.chunks, c)
	}

	wb, we := s.Window(start), s.Window(end-1)
	if n := we + 1; n > len(rb.linear) {
		rb.linear = append(rb.linear, make([]stream.Offset, n-len(rb.linear))...)
	}
	for w := wb; w <= we; w++ {
		if rb.linear[w] == stream.OffsetUnset || c.Start < rb.linear[w] {
			rb.linear[w] = c.Start
		}
	}
}

func (rb *refBuilder) build(s binning.Scheme) ReferenceIndex {
	// Forward-fill the window table so every bin's first window has the
	// latest offset known at or before it.
	for w := 1; w < len(rb.linear); w++ {
		if rb.linear[w] == stream.OffsetUnset {
			rb.linear[w] = rb.linear[w-1]
		}
	}

	bins := make([]Bin, 0, len(rb.bins))
	for _, bb := range rb.bins {
		chunks := stream.Merge(bb.chunks)
		if len(chunks) == 0 {
			continue
		}
		minOffset := stream.OffsetUnset
		if w := s.MinOffsetWindow(bb.id); w < len(rb.linear) {
			minOffset = rb.linear[w]
		}
		bins = append(bins, NewBin(bb.id, minOffset, chunks))
	}

	var stats *ReferenceStats
	if rb.hasRecords {
		st := rb.stats
		stats = &st
	}
	return NewReferenceIndex(bins, stats)
}
