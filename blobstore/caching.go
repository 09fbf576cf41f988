package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bindex/internal/cache"
)

const (
	defaultBlockSize = 64 * 1024

	// prefetchConcurrency bounds parallel backend fetches per read so a
	// scattered read cannot exhaust connections or rate limits.
	prefetchConcurrency = 16
)

// CachingStore wraps a Store with block-level read caching. Reads are
// served block-aligned from the cache; missing blocks are fetched from the
// backend, with contiguous gaps coalesced into single requests.
//
// Writes are not cached. Put and Delete invalidate the blob's cached blocks.
type CachingStore struct {
	inner     Store
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore holding up to capacity bytes of
// cached blocks. blockSize defaults to 64KB when <= 0; larger blocks
// amortize request overhead on high-latency backends, smaller blocks waste
// less on scattered reads.
func NewCachingStore(inner Store, capacity, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache.NewLRU(capacity),
		blockSize: blockSize,
	}
}

// CacheStats returns the block cache's hit and miss counters.
func (s *CachingStore) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through to the backend. Stored blobs are immutable, so
// fresh names never collide with cached blocks.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put writes a blob and invalidates its cached blocks.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Name == name })
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob and invalidates its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(key cache.Key) bool { return key.Name == name })
	return s.inner.Delete(ctx, name)
}

// List passes through to the backend.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	size := b.inner.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}

	want := int64(len(p))
	if off+want > size {
		want = size - off
	}

	startBlock := off / b.blockSize
	endBlock := (off + want - 1) / b.blockSize

	if err := b.fill(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	read := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.block(ctx, blk)
		if err != nil {
			return read, err
		}

		blockStart := blk * b.blockSize
		lo := max(blockStart, off) - blockStart
		hi := min(blockStart+b.blockSize, off+want) - blockStart
		if lo >= int64(len(data)) {
			break
		}
		if hi > int64(len(data)) {
			hi = int64(len(data))
		}
		read += copy(p[blockStart+lo-off:], data[lo:hi])
	}

	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

// ReadRange serves range reads through the block cache via ReadAt.
func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(&blobSectionReader{blob: b, ctx: ctx, off: off, limit: off + length}), nil
}

type run struct {
	start, count int64
}

// fill fetches the uncached blocks in [from, to], coalescing contiguous
// misses into single backend reads issued in parallel.
func (b *cachingBlob) fill(ctx context.Context, from, to int64) error {
	var runs []run
	cur := run{start: -1}
	for blk := from; blk <= to; blk++ {
		if _, ok := b.cache.Get(cache.Key{Name: b.name, Block: uint64(blk)}); ok {
			if cur.start != -1 {
				runs = append(runs, cur)
				cur = run{start: -1}
			}
			continue
		}
		if cur.start == -1 {
			cur = run{start: blk, count: 1}
		} else {
			cur.count++
		}
	}
	if cur.start != -1 {
		runs = append(runs, cur)
	}

	switch len(runs) {
	case 0:
		return nil
	case 1:
		return b.fetchRun(ctx, runs[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, r := range runs {
		g.Go(func() error {
			return b.fetchRun(gctx, r)
		})
	}
	return g.Wait()
}

func (b *cachingBlob) fetchRun(ctx context.Context, r run) error {
	size := b.inner.Size()
	off := r.start * b.blockSize
	if off >= size {
		return nil
	}
	length := r.count * b.blockSize
	if off+length > size {
		length = size - off
	}

	buf := make([]byte, length)
	n, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	for i := range r.count {
		lo := i * b.blockSize
		if lo >= int64(n) {
			break
		}
		hi := min(lo+b.blockSize, int64(n))
		// Copy each block out so the run buffer is not pinned by the cache.
		block := make([]byte, hi-lo)
		copy(block, buf[lo:hi])
		b.cache.Set(cache.Key{Name: b.name, Block: uint64(r.start + i)}, block)
	}
	return nil
}

func (b *cachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.Key{Name: b.name, Block: uint64(blk)}
	if data, ok := b.cache.Get(key); ok {
		return data, nil
	}

	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	data := buf[:n]
	if n > 0 {
		b.cache.Set(key, data)
	}
	return data, nil
}

// blobSectionReader adapts a context-aware Blob to io.Reader over a range.
type blobSectionReader struct {
	blob  Blob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *blobSectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}
