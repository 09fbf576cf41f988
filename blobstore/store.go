// Package blobstore abstracts storage of serialized indexes behind a small
// Store interface with local filesystem, in-memory, and object storage
// implementations.
//
// Implementations must be safe for concurrent use. Blobs written through
// Create become visible atomically on Close; readers never observe partial
// content.
//
// For cloud backends, Blob.ReadRange maps to HTTP range requests so callers
// can stream an index without fetching unrelated bytes.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store provides named blob storage for serialized indexes.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a blob for streaming writes. The content becomes
	// visible atomically when the returned blob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64

	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange returns a reader over [off, off+length), clamped to the
	// blob's size. The caller must close the returned reader.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a write handle returned by Store.Create.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Sync flushes written data to stable storage where the backend
	// supports it. Object stores commit only on Close and treat Sync as a
	// no-op.
	Sync() error

	// Abort discards an in-flight write without committing the blob.
	// Aborting after Close has no effect.
	Abort() error
}

// Mappable is an optional interface for Blobs whose content is addressable
// as a byte slice without copying. The slice is valid until the blob is
// closed.
type Mappable interface {
	Bytes() ([]byte, error)
}
