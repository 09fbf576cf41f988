// Package stream defines the primitive types shared between index producers
// and consumers: opaque virtual offsets into a record stream and half-open
// chunks of them.
//
// An Offset is totally ordered but otherwise opaque; only the transport that
// produced it can turn it back into a physical position. Index structures
// never inspect offsets beyond comparing them.
package stream

import (
	"fmt"
	"sort"
)

// Offset is an opaque virtual position in a record stream. Offsets from the
// same stream compare with the ordinary integer operators.
type Offset uint64

// OffsetUnset is the reserved no-information value for offset hints. A hint
// equal to OffsetUnset never causes filtering.
const OffsetUnset Offset = 0

func (o Offset) String() string {
	return fmt.Sprintf("%d", uint64(o))
}

// Chunk is a half-open range [Start, End) of virtual offsets covering a run
// of records.
type Chunk struct {
	Start Offset
	End   Offset
}

// Empty reports whether the chunk covers no offsets.
func (c Chunk) Empty() bool {
	return c.End <= c.Start
}

// Overlaps reports whether c and o share at least one offset.
func (c Chunk) Overlaps(o Chunk) bool {
	return c.Start < o.End && o.Start < c.End
}

// Mergeable reports whether c and o cover one contiguous offset range when
// combined, i.e. they overlap or touch.
func (c Chunk) Mergeable(o Chunk) bool {
	if o.Start < c.Start {
		c, o = o, c
	}
	return o.Start <= c.End
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d, %d)", uint64(c.Start), uint64(c.End))
}

// Merge coalesces chunks that overlap or touch into single chunks covering
// their union. Empty chunks are dropped. The result is sorted by Start and
// pairwise disjoint with gaps between consecutive chunks; merging never
// narrows the covered offsets. Merge is idempotent and may reuse and reorder
// the input slice.
func Merge(chunks []Chunk) []Chunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if !c.Empty() {
			kept = append(kept, c)
		}
	}
	if len(kept) < 2 {
		return kept
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	out := kept[:1]
	for _, c := range kept[1:] {
		last := &out[len(out)-1]
		if c.Start <= last.End {
			if c.End > last.End {
				last.End = c.End
			}
			continue
		}
		out = append(out, c)
	}
	return out
}
