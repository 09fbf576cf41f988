package bindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bindex/stream"
)

var (
	// ErrBuilderFinished is returned when a Builder is used after Build.
	ErrBuilderFinished = errors.New("builder already finished")

	// ErrReferenceCountSet is returned when SetReferenceCount is called twice.
	ErrReferenceCountSet = errors.New("reference count already set")
)

// UnplacedReferenceID is the sentinel reference id for records without a
// placement. Feeding it to Builder.AddRecord bumps the global unplaced
// counter and ignores the record's interval and chunk.
const UnplacedReferenceID = -1

// ErrUnknownReference indicates a reference id outside the declared range.
type ErrUnknownReference struct {
	ID            int
	NumReferences int
}

func (e *ErrUnknownReference) Error() string {
	return fmt.Sprintf("unknown reference id %d (have %d references)", e.ID, e.NumReferences)
}

// ErrOutOfOrder indicates a record that violates the non-decreasing
// (reference, start) input ordering.
type ErrOutOfOrder struct {
	RefID     int
	Start     int64
	LastRefID int
	LastStart int64
}

func (e *ErrOutOfOrder) Error() string {
	if e.LastRefID == UnplacedReferenceID {
		return fmt.Sprintf("record out of order: reference %d position %d after unplaced records", e.RefID, e.Start)
	}
	return fmt.Sprintf("record out of order: reference %d position %d after reference %d position %d",
		e.RefID, e.Start, e.LastRefID, e.LastStart)
}

// ErrInvalidChunk indicates a chunk whose end offset precedes its start.
type ErrInvalidChunk struct {
	Chunk stream.Chunk
}

func (e *ErrInvalidChunk) Error() string {
	return fmt.Sprintf("invalid chunk %s", e.Chunk)
}
