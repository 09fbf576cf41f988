package persistence

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/binning"
	"github.com/hupe1980/bindex/stream"
)

// Compile-time check: the Decoder is fed like any other byte sink.
var _ io.Writer = (*Decoder)(nil)

// decodeState identifies the structural field the Decoder expects next.
// Every state except stateAux consumes a fixed number of bytes.
type decodeState int

const (
	stateMagic decodeState = iota
	stateHeader
	stateAux
	stateNumRefs
	stateNumBins
	stateBinHeader
	stateChunk
	stateTrailer
	stateDone
)

func (s decodeState) size() int {
	switch s {
	case stateMagic, stateNumRefs, stateNumBins:
		return 4
	case stateHeader:
		return 12
	case stateBinHeader, stateChunk:
		return 16
	case stateTrailer:
		return 8
	default:
		return 0
	}
}

// Decoder incrementally parses the binary wire format from pushed byte
// slices. Feed it with Write in arbitrarily sized pieces; parsing pauses
// whenever the pushed bytes run out and resumes with the next Write, always
// between structural fields. Call Index once the input is exhausted.
//
// A Decoder never exposes a partially decoded index: abandoning it mid-input
// leaks nothing, and Index fails with ErrTruncated unless the input reached
// a clean end.
type Decoder struct {
	opts Options

	state decodeState
	buf   [16]byte
	fill  int
	read  int64
	err   error

	scheme  binning.Scheme
	aux     []byte
	auxFill int

	numRefs int
	refs    []bindex.ReferenceIndex

	numBins int
	binIdx  int
	bins    []bindex.Bin
	seen    *roaring.Bitmap
	stats   *bindex.ReferenceStats

	binID     uint32
	binOffset stream.Offset
	numChunks int
	chunkIdx  int
	chunks    []stream.Chunk

	unplaced uint64
	idx      *bindex.Index
}

// NewDecoder creates a Decoder. Options carry the logger and metrics
// collector attached to the decoded index.
func NewDecoder(optFns ...func(o *Options)) *Decoder {
	return &Decoder{
		opts: applyOptions(optFns),
		seen: roaring.New(),
	}
}

// BytesRead returns the number of bytes consumed so far.
func (d *Decoder) BytesRead() int64 {
	return d.read
}

// Write feeds the next piece of the serialized index. It consumes the whole
// slice unless a structural error occurs, in which case the error is sticky
// and all further calls fail with it.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	rest := p
	for len(rest) > 0 {
		if d.state == stateDone {
			d.fail(ErrTrailingData)
			break
		}
		if d.state == stateAux {
			n := copy(d.aux[d.auxFill:], rest)
			d.auxFill += n
			rest = rest[n:]
			if d.auxFill == len(d.aux) {
				d.state = stateNumRefs
			}
			continue
		}

		need := d.state.size()
		n := copy(d.buf[d.fill:need], rest)
		d.fill += n
		rest = rest[n:]
		if d.fill < need {
			break
		}
		d.fill = 0
		if err := d.advance(); err != nil {
			d.fail(err)
			break
		}
	}

	consumed := len(p) - len(rest)
	d.read += int64(consumed)
	if d.err != nil {
		return consumed, d.err
	}
	return consumed, nil
}

// Index returns the decoded index. It fails with ErrTruncated when the input
// stopped inside a structure. Input ending right before the trailing
// unplaced count is accepted with an unplaced count of zero.
func (d *Decoder) Index() (*bindex.Index, error) {
	if d.err != nil {
		return nil, d.err
	}
	switch {
	case d.state == stateDone:
		return d.idx, nil
	case d.state == stateTrailer && d.fill == 0:
		d.assemble()
		return d.idx, nil
	default:
		return nil, fmt.Errorf("%w: input ended %s", ErrTruncated, d.position())
	}
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// advance consumes the completed fixed-size field in d.buf.
func (d *Decoder) advance() error {
	switch d.state {
	case stateMagic:
		if magic := binary.LittleEndian.Uint32(d.buf[:4]); magic != Magic {
			return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
		}
		d.state = stateHeader

	case stateHeader:
		minShift := int32(binary.LittleEndian.Uint32(d.buf[0:4]))
		depth := int32(binary.LittleEndian.Uint32(d.buf[4:8]))
		auxLen := int32(binary.LittleEndian.Uint32(d.buf[8:12]))

		scheme, err := binning.New(int(minShift), int(depth))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if auxLen < 0 {
			return fmt.Errorf("%w: aux length %d", ErrInvalidCount, auxLen)
		}
		d.scheme = scheme
		if auxLen > 0 {
			d.aux = make([]byte, auxLen)
			d.state = stateAux
		} else {
			d.state = stateNumRefs
		}

	case stateNumRefs:
		n := int32(binary.LittleEndian.Uint32(d.buf[:4]))
		if n < 0 {
			return fmt.Errorf("%w: reference count %d", ErrInvalidCount, n)
		}
		d.numRefs = int(n)
		d.refs = make([]bindex.ReferenceIndex, 0, capHint(d.numRefs))
		if d.numRefs == 0 {
			d.state = stateTrailer
		} else {
			d.state = stateNumBins
		}

	case stateNumBins:
		n := int32(binary.LittleEndian.Uint32(d.buf[:4]))
		if n < 0 {
			return fmt.Errorf("%w: bin count %d", ErrInvalidCount, n)
		}
		d.numBins = int(n)
		d.binIdx = 0
		d.bins = make([]bindex.Bin, 0, capHint(d.numBins))
		d.seen.Clear()
		d.stats = nil
		if d.numBins == 0 {
			d.finishReference()
		} else {
			d.state = stateBinHeader
		}

	case stateBinHeader:
		id := binary.LittleEndian.Uint32(d.buf[0:4])
		offset := binary.LittleEndian.Uint64(d.buf[4:12])
		n := int32(binary.LittleEndian.Uint32(d.buf[12:16]))
		if n < 0 {
			return fmt.Errorf("%w: chunk count %d", ErrInvalidCount, n)
		}
		if id == d.scheme.StatsBinID() {
			if d.stats != nil {
				return fmt.Errorf("%w: duplicate statistics bin", ErrInvalidBin)
			}
			if n != 2 {
				return fmt.Errorf("%w: statistics bin with %d chunks", ErrInvalidBin, n)
			}
		} else {
			if id > d.scheme.MaxBinID() {
				return fmt.Errorf("%w: id %d exceeds scheme", ErrInvalidBin, id)
			}
			if d.seen.Contains(id) {
				return fmt.Errorf("%w: duplicate id %d", ErrInvalidBin, id)
			}
			d.seen.Add(id)
		}
		d.binID = id
		d.binOffset = stream.Offset(offset)
		d.numChunks = int(n)
		d.chunkIdx = 0
		d.chunks = make([]stream.Chunk, 0, capHint(d.numChunks))
		if d.numChunks == 0 {
			d.finishBin()
		} else {
			d.state = stateChunk
		}

	case stateChunk:
		d.chunks = append(d.chunks, stream.Chunk{
			Start: stream.Offset(binary.LittleEndian.Uint64(d.buf[0:8])),
			End:   stream.Offset(binary.LittleEndian.Uint64(d.buf[8:16])),
		})
		d.chunkIdx++
		if d.chunkIdx == d.numChunks {
			d.finishBin()
		}

	case stateTrailer:
		d.unplaced = binary.LittleEndian.Uint64(d.buf[:8])
		d.assemble()
	}
	return nil
}

func (d *Decoder) finishBin() {
	if d.binID == d.scheme.StatsBinID() {
		d.stats = &bindex.ReferenceStats{
			MinOffset: d.chunks[0].Start,
			MaxOffset: d.chunks[0].End,
			Mapped:    uint64(d.chunks[1].Start),
			Unmapped:  uint64(d.chunks[1].End),
		}
	} else {
		d.bins = append(d.bins, bindex.NewBin(d.binID, d.binOffset, d.chunks))
	}
	d.chunks = nil
	d.binIdx++
	if d.binIdx == d.numBins {
		d.finishReference()
	} else {
		d.state = stateBinHeader
	}
}

func (d *Decoder) finishReference() {
	d.refs = append(d.refs, bindex.NewReferenceIndex(d.bins, d.stats))
	d.bins = nil
	d.stats = nil
	if len(d.refs) == d.numRefs {
		d.state = stateTrailer
	} else {
		d.state = stateNumBins
	}
}

func (d *Decoder) assemble() {
	d.idx = bindex.NewIndex(d.scheme, d.aux, d.refs, d.unplaced,
		bindex.WithLogger(d.opts.Logger),
		bindex.WithMetricsCollector(d.opts.Metrics),
	)
	d.refs = nil
	d.state = stateDone
}

func (d *Decoder) position() string {
	switch d.state {
	case stateMagic:
		return "in magic"
	case stateHeader:
		return "in header"
	case stateAux:
		return "in aux payload"
	case stateNumRefs:
		return "in reference count"
	case stateNumBins:
		return fmt.Sprintf("in bin count of reference %d", len(d.refs))
	case stateBinHeader:
		return fmt.Sprintf("in bin %d of reference %d", d.binIdx, len(d.refs))
	case stateChunk:
		return fmt.Sprintf("in chunk %d of bin %d", d.chunkIdx, d.binID)
	case stateTrailer:
		return "in trailer"
	default:
		return "after index"
	}
}

// capHint bounds preallocation from declared counts so corrupt headers
// cannot force large allocations before the data backs them up.
func capHint(n int) int {
	return min(n, 4096)
}
