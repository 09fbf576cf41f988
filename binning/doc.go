// Package binning implements the hierarchical interval binning math used by
// coordinate-sorted stream indexes.
//
// A Scheme partitions the positions of a reference sequence into a complete
// tree of bins. Level 0 is a single root bin spanning every addressable
// position; each deeper level splits every bin into 8 children, down to leaf
// bins of width 1<<MinShift. Bins are numbered breadth-first, so the ids of
// any level form one contiguous range and all arithmetic is pure bit
// shifting.
//
// All functions are deterministic and allocation-free except where a result
// slice is returned.
package binning
