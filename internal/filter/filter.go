// Package filter implements the five PNG scanline filters and the adaptive
// per-row selector.
package filter

// Type identifies one of the five PNG scanline filters.
type Type uint8

const (
	None Type = iota
	Sub
	Up
	Average
	Paeth

	numFilters = int(Paeth) + 1
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Sub:
		return "Sub"
	case Up:
		return "Up"
	case Average:
		return "Average"
	case Paeth:
		return "Paeth"
	default:
		return "Unknown"
	}
}

// abs8 returns the absolute value of d interpreted as a signed byte.
func abs8(d uint8) int {
	if d < 128 {
		return int(d)
	}
	return 256 - int(d)
}

func paethPredictor(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := p - int(a)
	if pa < 0 {
		pa = -pa
	}
	pb := p - int(b)
	if pb < 0 {
		pb = -pb
	}
	pc := p - int(c)
	if pc < 0 {
		pc = -pc
	}
	// Ties broken in the order a, b, c.
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

// Apply writes the result of filtering cur (the current row) against prev
// (the previous row's raw, unfiltered bytes — use a zero-filled slice of the
// same length for the first row) into dst using filter kind f. bpp is the
// number of bytes per pixel (minimum 1, per the PNG specification's
// definition of the `a`/`c` predictor offset).
func Apply(dst []byte, f Type, cur, prev []byte, bpp int) {
	for i := range cur {
		var a, b, c uint8
		if i >= bpp {
			a = cur[i-bpp]
		}
		if prev != nil {
			b = prev[i]
			if i >= bpp {
				c = prev[i-bpp]
			}
		}
		x := cur[i]
		switch f {
		case None:
			dst[i] = x
		case Sub:
			dst[i] = x - a
		case Up:
			dst[i] = x - b
		case Average:
			dst[i] = x - uint8((int(a)+int(b))>>1)
		case Paeth:
			dst[i] = x - paethPredictor(a, b, c)
		}
	}
}

// sumAbs returns the minimum-sum-of-absolute-differences heuristic value for
// row, pruning the accumulation as soon as it reaches best (every term is
// non-negative, so a running sum that has already reached best cannot end up
// strictly smaller; this changes nothing about which filter wins, only how
// much work is spent finding out).
func sumAbs(row []byte, best int) int {
	sum := 0
	for _, b := range row {
		sum += abs8(b)
		if sum >= best {
			return sum
		}
	}
	return sum
}

// Scratch holds the five candidate filtered rows, reused across calls to
// SelectAdaptive to avoid a per-row allocation storm on large images.
type Scratch struct {
	rows [numFilters][]byte
}

// NewScratch allocates a Scratch sized for rows of width bytes.
func NewScratch(width int) *Scratch {
	s := &Scratch{}
	for i := range s.rows {
		s.rows[i] = make([]byte, width)
	}
	return s
}

// SelectAdaptive computes all five filtered candidates for cur and returns
// the filter type and filtered bytes minimizing the sum-of-absolute-values
// heuristic, breaking ties by ascending filter index. The returned slice
// aliases Scratch's internal storage and is only valid until the next call.
func SelectAdaptive(s *Scratch, cur, prev []byte, bpp int) (Type, []byte) {
	bestFilter := None
	Apply(s.rows[None], None, cur, prev, bpp)
	bestSum := sumAbs(s.rows[None], int(^uint(0)>>1))
	for f := Sub; f <= Paeth; f++ {
		Apply(s.rows[f], f, cur, prev, bpp)
		sum := sumAbs(s.rows[f], bestSum)
		if sum < bestSum {
			bestSum = sum
			bestFilter = f
		}
	}
	return bestFilter, s.rows[bestFilter]
}

// SelectFixed filters cur using a caller-chosen fixed filter, used when
// Options.FilterMode is not Adaptive (e.g. the Indexed-color default of
// None).
func SelectFixed(dst []byte, f Type, cur, prev []byte, bpp int) {
	Apply(dst, f, cur, prev, bpp)
}
