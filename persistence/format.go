// Package persistence serializes binning indexes to their canonical binary
// form and reads them back, either blocking or incrementally.
//
// All integers are little-endian. The layout is:
//
//	magic     uint32  "CSI\x01"
//	minShift  int32
//	depth     int32
//	auxLen    int32
//	aux       [auxLen]byte
//	numRefs   int32
//	per reference:
//	  numBins int32
//	  per bin:
//	    id        uint32
//	    minOffset uint64
//	    numChunks int32
//	    chunks    [numChunks]{start uint64, end uint64}
//	unplaced  uint64
//
// Per-reference statistics ride in a reserved pseudo-bin (id StatsBinID of
// the scheme) holding exactly two chunk pairs: {minOffset, maxOffset} and
// {mapped, unmapped}. The trailing unplaced count may be absent in files from
// older writers and then reads as zero.
package persistence

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bindex"
)

// Magic identifies serialized binning indexes. Its little-endian encoding is
// the file prefix "CSI\x01".
const Magic = 0x01495343

var (
	// ErrFormat is the base error for malformed index data. Every structural
	// decoding failure wraps it.
	ErrFormat = errors.New("malformed index")

	// ErrInvalidMagic is returned when the input does not start with Magic.
	ErrInvalidMagic = fmt.Errorf("%w: invalid magic", ErrFormat)

	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = fmt.Errorf("%w: truncated input", ErrFormat)

	// ErrInvalidCount is returned for negative length or count fields.
	ErrInvalidCount = fmt.Errorf("%w: invalid count", ErrFormat)

	// ErrInvalidBin is returned for bin ids outside the scheme or repeated
	// within a reference.
	ErrInvalidBin = fmt.Errorf("%w: invalid bin", ErrFormat)

	// ErrTrailingData is returned when bytes follow a complete index.
	ErrTrailingData = fmt.Errorf("%w: trailing data", ErrFormat)

	// ErrIndexTooLarge is returned by the writer when a length exceeds the
	// wire format's 32-bit count fields.
	ErrIndexTooLarge = errors.New("index too large for wire format")
)

// Options configures persistence operations.
type Options struct {
	// Logger receives structured logs for save and load operations and is
	// attached to loaded indexes.
	Logger *bindex.Logger

	// Metrics receives read/write figures and is attached to loaded indexes.
	Metrics bindex.MetricsCollector
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{}

func applyOptions(optFns []func(o *Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = bindex.NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = bindex.NoopMetricsCollector{}
	}
	return opts
}
