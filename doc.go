// Package bindex builds and queries hierarchical binning indexes over
// coordinate-sorted record streams.
//
// An index maps half-open position intervals on reference sequences to
// chunks of opaque virtual offsets in the stream that produced the records.
// Records are fed once, in position order, through a Builder; the resulting
// Index answers interval queries with a small list of candidate chunks that
// a transport layer can then read and filter exactly.
//
// The index neither decodes records nor touches the underlying byte stream:
// offsets are opaque and only compared. Serialization lives in the
// persistence package; remote byte-stream backends live in blobstore.
//
// Basic usage:
//
//	b := bindex.NewBuilder()
//	_ = b.SetReferenceCount(1)
//	_ = b.AddRecord(0, 1000, 2000, true, stream.Chunk{Start: 0, End: 100})
//	idx, _ := b.Build()
//
//	chunks, _ := idx.Query(0, 1500, 1600)
//	// chunks == [[0, 100)]
package bindex
