package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/blobstore"
)

func TestWriteReadBlob(t *testing.T) {
	idx := buildTestIndex(t)
	ctx := context.Background()

	// The caching store is deliberately configured with blocks smaller than
	// the index so reads cross block boundaries.
	stores := map[string]blobstore.Store{
		"memory":    blobstore.NewMemoryStore(),
		"local":     blobstore.NewLocalStore(t.TempDir()),
		"caching":   blobstore.NewCachingStore(blobstore.NewMemoryStore(), 1<<20, 128),
		"throttled": blobstore.NewThrottledStore(blobstore.NewMemoryStore(), 1<<30, 8),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, WriteBlob(ctx, store, "indexes/current.csi", idx))

			got, err := ReadBlob(ctx, store, "indexes/current.csi")
			require.NoError(t, err)
			assertIndexesEqual(t, idx, got)
		})
	}
}

func TestWriteBlobBytes(t *testing.T) {
	idx := buildTestIndex(t)
	want := encode(t, idx)
	ctx := context.Background()

	store := blobstore.NewMemoryStore()
	require.NoError(t, WriteBlob(ctx, store, "idx.csi", idx))

	blob, err := store.Open(ctx, "idx.csi")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(want)), blob.Size())

	got := make([]byte, len(want))
	_, err = blob.ReadAt(ctx, got, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadBlobMissing(t *testing.T) {
	_, err := ReadBlob(context.Background(), blobstore.NewMemoryStore(), "missing.csi")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestReadBlobCanceled(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, WriteBlob(context.Background(), store, "idx.csi", buildTestIndex(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadBlob(ctx, store, "idx.csi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlobMetrics(t *testing.T) {
	idx := buildTestIndex(t)
	size := int64(len(encode(t, idx)))
	ctx := context.Background()

	collector := &bindex.BasicMetricsCollector{}
	store := blobstore.NewMemoryStore()

	require.NoError(t, WriteBlob(ctx, store, "idx.csi", idx, func(o *Options) { o.Metrics = collector }))
	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.WriteCount)
	assert.Equal(t, size, stats.WriteBytes)

	_, err := ReadBlob(ctx, store, "idx.csi", func(o *Options) { o.Metrics = collector })
	require.NoError(t, err)
	stats = collector.GetStats()
	assert.Equal(t, int64(1), stats.ReadCount)
	assert.Equal(t, size, stats.ReadBytes)
}
