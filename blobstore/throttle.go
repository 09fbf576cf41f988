package blobstore

import (
	"context"
	"io"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ThrottledStore wraps a Store with a byte-rate limit and a bound on
// concurrent backend requests. It keeps bulk index transfers from starving
// latency-sensitive traffic sharing the same backend.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewThrottledStore creates a ThrottledStore. bytesPerSec <= 0 disables the
// rate limit, maxConcurrent <= 0 the concurrency bound.
func NewThrottledStore(inner Store, bytesPerSec int64, maxConcurrent int64) *ThrottledStore {
	s := &ThrottledStore{inner: inner}
	if bytesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
	}
	if maxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return s
}

// Open opens a blob whose reads are throttled.
func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{inner: b, store: s}, nil
}

// Create creates a blob whose writes are throttled. Writes pace against the
// context passed here.
func (s *ThrottledStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledWritableBlob{inner: w, store: s, ctx: ctx}, nil
}

// Put writes a blob, charging its size against the rate limit.
func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.waitIO(ctx, int64(len(data))); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob.
func (s *ThrottledStore) Delete(ctx context.Context, name string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return s.inner.Delete(ctx, name)
}

// List returns the blob names with the given prefix, sorted.
func (s *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.inner.List(ctx, prefix)
}

func (s *ThrottledStore) acquire(ctx context.Context) (func(), error) {
	if s.sem == nil {
		return func() {}, nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

// waitIO blocks until the limiter allows n bytes. Requests larger than the
// burst are split so they wait instead of failing.
func (s *ThrottledStore) waitIO(ctx context.Context, n int64) error {
	if s.limiter == nil || n <= 0 {
		return nil
	}
	burst := int64(s.limiter.Burst())
	for n > 0 {
		step := min(n, burst)
		if err := s.limiter.WaitN(ctx, int(step)); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

type throttledBlob struct {
	inner Blob
	store *ThrottledStore
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	release, err := b.store.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := b.store.waitIO(ctx, int64(len(p))); err != nil {
		return 0, err
	}
	return b.inner.ReadAt(ctx, p, off)
}

// ReadRange charges the clamped range size up front; consuming the returned
// reader is not throttled further.
func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	release, err := b.store.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if remaining := b.inner.Size() - off; remaining >= 0 && length > remaining {
		length = remaining
	}
	if err := b.store.waitIO(ctx, length); err != nil {
		return nil, err
	}
	return b.inner.ReadRange(ctx, off, length)
}

func (b *throttledBlob) Size() int64 {
	return b.inner.Size()
}

func (b *throttledBlob) Close() error {
	return b.inner.Close()
}

type throttledWritableBlob struct {
	inner WritableBlob
	store *ThrottledStore
	ctx   context.Context
}

func (w *throttledWritableBlob) Write(p []byte) (int, error) {
	if err := w.store.waitIO(w.ctx, int64(len(p))); err != nil {
		return 0, err
	}
	return w.inner.Write(p)
}

func (w *throttledWritableBlob) Sync() error {
	return w.inner.Sync()
}

func (w *throttledWritableBlob) Abort() error {
	return w.inner.Abort()
}

func (w *throttledWritableBlob) Close() error {
	return w.inner.Close()
}
