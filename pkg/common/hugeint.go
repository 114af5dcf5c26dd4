package common

import (
	"fmt"
	"math"
)

type Hugeint struct {
	Lower uint64
	Upper int64
}

func (h Hugeint) String() string {
	return fmt.Sprintf("[%d %d]", h.Upper, h.Lower)
}

func (h *Hugeint) Equal(o *Hugeint) bool {
	return h.Lower == o.Lower && h.Upper == o.Upper
}

func HugeintFromInt64(v int64) Hugeint {
	upper := int64(0)
	if v < 0 {
		upper = -1
	}
	return Hugeint{Lower: uint64(v), Upper: upper}
}

func (h *Hugeint) ToInt64() (int64, bool) {
	if h.Upper == 0 && h.Lower <= math.MaxInt64 {
		return int64(h.Lower), true
	}
	if h.Upper == -1 && h.Lower > math.MaxInt64 {
		return int64(h.Lower), true
	}
	return 0, false
}

func (h *Hugeint) ToFloat64() float64 {
	return float64(h.Upper)*(1<<64) + float64(h.Lower)
}

func NegateHugeint(input *Hugeint, result *Hugeint) {
	if input.Upper == math.MinInt64 && input.Lower == 0 {
		panic("-hugeint overflow")
	}
	result.Lower = math.MaxUint64 - input.Lower + 1
	if input.Lower == 0 {
		result.Upper = -1 - input.Upper + 1
	} else {
		result.Upper = -1 - input.Upper
	}
}

// AddInplace returns false on overflow.
func AddInplace(lhs, rhs *Hugeint) bool {
	ladd := lhs.Lower + rhs.Lower
	overflow := int64(0)
	if ladd < lhs.Lower {
		overflow = 1
	}
	if rhs.Upper >= 0 {
		if lhs.Upper > (math.MaxInt64 - rhs.Upper - overflow) {
			return false
		}
		lhs.Upper = lhs.Upper + overflow + rhs.Upper
	} else {
		if lhs.Upper < (math.MinInt64 - rhs.Upper - overflow) {
			return false
		}
		lhs.Upper = lhs.Upper + (overflow + rhs.Upper)
	}
	lhs.Lower += rhs.Lower
	if lhs.Upper == math.MinInt64 && lhs.Lower == 0 {
		return false
	}
	return true
}

func (h *Hugeint) Add(lhs, rhs *Hugeint) {
	if !AddInplace(lhs, rhs) {
		panic("hugeint add overflow")
	}
}

func (h *Hugeint) Mul(lhs, rhs *Hugeint) {
	panic("usp")
}

func (h *Hugeint) Less(lhs, rhs *Hugeint) bool {
	if lhs.Upper != rhs.Upper {
		return lhs.Upper < rhs.Upper
	}
	return lhs.Lower < rhs.Lower
}

func (h *Hugeint) Greater(lhs, rhs *Hugeint) bool {
	if lhs.Upper != rhs.Upper {
		return lhs.Upper > rhs.Upper
	}
	return lhs.Lower > rhs.Lower
}
