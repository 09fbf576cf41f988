package binning

import "fmt"

// ErrInvalidScheme indicates scheme dimensions that are negative or would
// overflow bin ids or positions.
type ErrInvalidScheme struct {
	MinShift int
	Depth    int
}

func (e *ErrInvalidScheme) Error() string {
	return fmt.Sprintf("invalid binning scheme: min shift %d, depth %d", e.MinShift, e.Depth)
}

// ErrInvalidInterval indicates a half-open interval that is empty, negative,
// or beyond the scheme's addressable positions.
type ErrInvalidInterval struct {
	Start int64
	End   int64
	Max   int64
}

func (e *ErrInvalidInterval) Error() string {
	if e.Start < 0 || e.End <= e.Start {
		return fmt.Sprintf("invalid interval [%d, %d)", e.Start, e.End)
	}
	return fmt.Sprintf("interval [%d, %d) exceeds max position %d", e.Start, e.End, e.Max)
}
