package bindex

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bindex/binning"
	"github.com/hupe1980/bindex/stream"
)

// Region identifies a half-open position interval on one reference sequence.
type Region struct {
	RefID int
	Start int64
	End   int64
}

// Query returns the chunks of the underlying stream that may contain records
// overlapping the half-open interval [start, end) on the given reference.
//
// Results are ascending, coalesced, and conservative: every record
// overlapping the interval lies in some returned chunk, but chunks may also
// cover non-overlapping records that the caller filters after decoding.
// An empty result means no candidate records and is not an error.
func (x *Index) Query(refID int, start, end int64) ([]stream.Chunk, error) {
	began := time.Now()

	chunks, err := x.query(refID, start, end)

	x.logger.LogQuery(refID, start, end, len(chunks), err)
	x.metrics.RecordQuery(len(chunks), time.Since(began), err)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (x *Index) query(refID int, start, end int64) ([]stream.Chunk, error) {
	if refID < 0 || refID >= len(x.refs) {
		return nil, &ErrUnknownReference{ID: refID, NumReferences: len(x.refs)}
	}
	rs, err := x.scheme.LevelRanges(start, end, make([]binning.BinRange, 0, x.scheme.Depth+1))
	if err != nil {
		return nil, err
	}

	ref := x.refs[refID]
	if ref.binIDs == nil || ref.binIDs.IsEmpty() {
		return nil, nil
	}

	minOffset := x.minOffsetFor(ref, start)

	// Candidate ranges ascend strictly across levels, so one forward pass
	// over the populated-bin bitmap visits every candidate.
	var chunks []stream.Chunk
	it := ref.binIDs.Iterator()
	for _, r := range rs {
		it.AdvanceIfNeeded(r.Lo)
		for it.HasNext() && it.PeekNext() <= r.Hi {
			bin := ref.bins[it.Next()]
			for _, c := range bin.chunks {
				if c.End > minOffset {
					chunks = append(chunks, c)
				}
			}
		}
	}
	return stream.Merge(chunks), nil
}

// minOffsetFor resolves the advisory lower bound for chunks that can contain
// records at or after start: the hint of the first populated bin on the walk
// from the leaf containing start up to the root.
func (x *Index) minOffsetFor(ref ReferenceIndex, start int64) stream.Offset {
	id := x.scheme.LeafBin(start)
	for {
		if ref.binIDs.Contains(id) {
			return ref.bins[id].minOffset
		}
		if id == 0 {
			return stream.OffsetUnset
		}
		id = binning.Parent(id)
	}
}

// QueryMany resolves independent regions concurrently. Results align
// positionally with regions. The first error aborts outstanding queries.
func (x *Index) QueryMany(ctx context.Context, regions []Region) ([][]stream.Chunk, error) {
	results := make([][]stream.Chunk, len(regions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, reg := range regions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks, err := x.Query(reg.RefID, reg.Start, reg.End)
			if err != nil {
				return err
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
