package persistence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/blobstore"
)

// WriteBlob streams idx into store under name. The blob is committed on
// success and aborted on error, so readers never observe a partial index.
func WriteBlob(ctx context.Context, store blobstore.Store, name string, idx *bindex.Index, optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)
	start := time.Now()

	n, err := writeBlob(ctx, store, name, idx)

	opts.Metrics.RecordWrite(n, time.Since(start), err)
	opts.Logger.LogWrite(name, n, err)
	return err
}

func writeBlob(ctx context.Context, store blobstore.Store, name string, idx *bindex.Index) (int64, error) {
	wb, err := store.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("persistence: failed to create blob %s: %w", name, err)
	}

	bw := bufio.NewWriterSize(wb, fileBufferSize)
	w := NewWriter(bw)
	if err := w.WriteIndex(idx); err != nil {
		_ = wb.Abort()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to write blob %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		_ = wb.Abort()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to flush blob %s: %w", name, err)
	}
	if err := wb.Close(); err != nil {
		return w.BytesWritten(), fmt.Errorf("persistence: failed to commit blob %s: %w", name, err)
	}
	return w.BytesWritten(), nil
}

// ReadBlob reads the index stored under name. Blobs that expose their
// content as a byte slice are decoded in place; anything else is streamed
// through a single ranged read.
func ReadBlob(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*bindex.Index, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open blob %s: %w", name, err)
	}
	defer blob.Close()

	if m, ok := blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			return readNamedContext(ctx, name, bytes.NewReader(data), optFns)
		}
	}

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to read blob %s: %w", name, err)
	}
	defer rc.Close()

	return readNamedContext(ctx, name, rc, optFns)
}
