// Package cache provides a byte-capacity LRU for immutable blob blocks,
// used to keep hot regions of remote index blobs in memory.
package cache

// Key identifies one cached block of a named blob.
type Key struct {
	// Name is the blob name within its store.
	Name string
	// Block is the block index within the blob.
	Block uint64
}

// BlockCache caches immutable byte blocks. Returned slices must be treated
// as read-only. Implementations are safe for concurrent use.
type BlockCache interface {
	// Get returns a cached block, or ok=false if missing.
	Get(key Key) (b []byte, ok bool)

	// Set caches a block. The cache retains b; callers must not modify it.
	Set(key Key, b []byte)

	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)

	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}
