package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/bindex/stream"
)

// Record is one synthetic placed record: an alignment-like interval on a
// reference plus the virtual chunk holding its bytes.
type Record struct {
	RefID      int
	Start, End int64
	Mapped     bool
	Chunk      stream.Chunk
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int63n returns a non-negative pseudo-random int64 in [0,n).
func (r *RNG) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Int63n(n)
}

// Records generates size coordinate-sorted records spread evenly across
// refs references, the shape aligned short reads produce: sorted by
// (reference, start), stepping 0-255bp apart, spanning 100-250bp, with
// virtual offsets advancing one 16KB compressed block per 512 records.
// One in fifty records is placed but unmapped.
func (r *RNG) Records(refs, size int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := make([]Record, 0, size)
	perRef := size / refs
	for ref := 0; ref < refs; ref++ {
		var pos int64
		for i := 0; i < perRef; i++ {
			pos += r.rand.Int63n(256)
			n := len(recs)
			recs = append(recs, Record{
				RefID:  ref,
				Start:  pos,
				End:    pos + 100 + r.rand.Int63n(151),
				Mapped: r.rand.Intn(50) != 0,
				Chunk:  stream.Chunk{Start: recordOffset(n), End: recordOffset(n + 1)},
			})
		}
	}
	return recs
}

// recordOffset is the virtual offset of the n-th record in generation order.
func recordOffset(n int) stream.Offset {
	block := uint64(n/512) * 16384
	within := uint64(n%512) * 120
	return stream.Offset(block<<16 | within)
}

// OverlappingChunks returns, by linear scan, the chunk of every record on
// refID whose interval overlaps [start, end). This is the ground truth a
// query result must cover. Placed-but-unmapped records count: the index
// stores them at their position.
func OverlappingChunks(records []Record, refID int, start, end int64) []stream.Chunk {
	var chunks []stream.Chunk
	for _, rec := range records {
		if rec.RefID == refID && rec.Start < end && rec.End > start {
			chunks = append(chunks, rec.Chunk)
		}
	}
	return chunks
}

// Covers reports whether chunk lies entirely inside one of the result
// chunks. Merged query results are disjoint with real gaps between them,
// so containment in the union implies containment in a single chunk.
func Covers(result []stream.Chunk, chunk stream.Chunk) bool {
	for _, rc := range result {
		if chunk.Start >= rc.Start && chunk.End <= rc.End {
			return true
		}
	}
	return false
}
