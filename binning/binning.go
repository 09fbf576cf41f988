package binning

import "math"

// Default is the scheme used by the classic 5-level, 16kb-leaf bin layout.
// It addresses positions up to 1<<29.
var Default = Scheme{MinShift: 14, Depth: 5}

// Scheme describes one binning hierarchy: leaf bins are 1<<MinShift positions
// wide and the tree has Depth levels below the root.
//
// The zero value is a degenerate single-bin scheme; use New or Default
// instead.
type Scheme struct {
	// MinShift is the log2 width of a leaf bin.
	MinShift int
	// Depth is the number of levels below the root bin.
	Depth int
}

// New creates a Scheme and validates its dimensions.
//
// MinShift and Depth must be nonnegative, every bin id (including the
// reserved statistics bin) must fit in a uint32, and MaxPosition must fit in
// an int64.
func New(minShift, depth int) (Scheme, error) {
	s := Scheme{MinShift: minShift, Depth: depth}
	if minShift < 0 || depth < 0 {
		return Scheme{}, &ErrInvalidScheme{MinShift: minShift, Depth: depth}
	}
	if minShift+3*depth > 62 {
		return Scheme{}, &ErrInvalidScheme{MinShift: minShift, Depth: depth}
	}
	if numBins(depth)+1 > math.MaxUint32 {
		return Scheme{}, &ErrInvalidScheme{MinShift: minShift, Depth: depth}
	}
	return s, nil
}

// numBins returns the total number of regular bins for the given depth,
// sum of 8^l for l in [0, depth].
func numBins(depth int) uint64 {
	return ((uint64(1) << (3 * (depth + 1))) - 1) / 7
}

// MaxPosition returns the exclusive upper bound of addressable positions.
func (s Scheme) MaxPosition() int64 {
	return int64(1) << (s.MinShift + 3*s.Depth)
}

// NumBins returns the number of regular bins; valid ids are [0, NumBins()).
func (s Scheme) NumBins() uint32 {
	return uint32(numBins(s.Depth))
}

// MaxBinID returns the largest regular bin id.
func (s Scheme) MaxBinID() uint32 {
	return s.NumBins() - 1
}

// StatsBinID returns the reserved pseudo-bin id that flags a per-reference
// statistics block in the serialized form. It is never produced by Bin or
// Overlapping.
func (s Scheme) StatsBinID() uint32 {
	return s.NumBins() + 1
}

// NumWindows returns the number of leaf windows, one per leaf bin.
func (s Scheme) NumWindows() int {
	return 1 << (3 * s.Depth)
}

// FirstBinOnLevel returns the id of the first bin on level l.
func FirstBinOnLevel(l int) uint32 {
	return uint32(((uint64(1) << (3 * l)) - 1) / 7)
}

// Parent returns the id of the parent bin. The root is its own parent.
func Parent(id uint32) uint32 {
	if id == 0 {
		return 0
	}
	return (id - 1) >> 3
}

// Level returns the level of the given bin id, 0 for the root and Depth for
// leaves.
func (s Scheme) Level(id uint32) int {
	for l := 0; l < s.Depth; l++ {
		if id < FirstBinOnLevel(l+1) {
			return l
		}
	}
	return s.Depth
}

// LeafBin returns the id of the leaf bin containing pos. The caller must
// ensure 0 <= pos < MaxPosition.
func (s Scheme) LeafBin(pos int64) uint32 {
	return FirstBinOnLevel(s.Depth) + uint32(pos>>s.MinShift)
}

// Window returns the index of the leaf window containing pos.
func (s Scheme) Window(pos int64) int {
	return int(pos >> s.MinShift)
}

// MinOffsetWindow returns the index of the first leaf window spanned by the
// given bin, the window its minimum-offset hint is taken from.
func (s Scheme) MinOffsetWindow(id uint32) int {
	k := s.Depth - s.Level(id)
	first := uint64(id)<<(3*k) + ((uint64(1)<<(3*k))-1)/7
	return int(first) - int(FirstBinOnLevel(s.Depth))
}

// ValidateInterval checks a half-open interval against the scheme. Intervals
// must satisfy 0 <= start < end <= MaxPosition.
func (s Scheme) ValidateInterval(start, end int64) error {
	if start < 0 || end <= start || end > s.MaxPosition() {
		return &ErrInvalidInterval{Start: start, End: end, Max: s.MaxPosition()}
	}
	return nil
}

// Bin returns the id of the deepest bin that wholly contains the half-open
// interval [start, end). Intervals spanning a boundary on every level land in
// the root bin 0.
func (s Scheme) Bin(start, end int64) (uint32, error) {
	if err := s.ValidateInterval(start, end); err != nil {
		return 0, err
	}
	end--
	sh := uint(s.MinShift)
	t := int64(FirstBinOnLevel(s.Depth))
	for l := s.Depth; l > 0; l-- {
		if start>>sh == end>>sh {
			return uint32(t + start>>sh), nil
		}
		sh += 3
		t -= int64(1) << (3 * (l - 1))
	}
	return 0, nil
}

// BinRange is a contiguous inclusive range of bin ids on one level.
type BinRange struct {
	Lo uint32
	Hi uint32
}

// LevelRanges returns, for every level from the root down, the inclusive id
// range of bins whose span intersects [start, end). Results are appended to
// rs, which may be nil; ranges are strictly ascending.
func (s Scheme) LevelRanges(start, end int64, rs []BinRange) ([]BinRange, error) {
	if err := s.ValidateInterval(start, end); err != nil {
		return nil, err
	}
	end--
	sh := uint(s.MinShift + 3*s.Depth)
	t := int64(0)
	for l := 0; l <= s.Depth; l++ {
		rs = append(rs, BinRange{
			Lo: uint32(t + start>>sh),
			Hi: uint32(t + end>>sh),
		})
		t += int64(1) << (3 * l)
		sh -= 3
	}
	return rs, nil
}

// Overlapping returns the ids of every bin whose span intersects the
// half-open interval [start, end), appended to ids in ascending order.
func (s Scheme) Overlapping(start, end int64, ids []uint32) ([]uint32, error) {
	rs, err := s.LevelRanges(start, end, make([]BinRange, 0, s.Depth+1))
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		for id := r.Lo; id <= r.Hi; id++ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
