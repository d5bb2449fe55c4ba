package common

import (
	"errors"
	"math"
	"math/bits"
)

// ErrOverflow is returned when unsigned 64-bit arithmetic would wrap. Amount
// math across the ledger fails loudly instead of silently truncating.
var ErrOverflow = errors.New("amount overflow")

// BasisPointsDenominator is the shared denominator for all basis-point rates.
const BasisPointsDenominator uint64 = 10_000

// AddU64 returns a+b or ErrOverflow.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// MulU64 returns a*b or ErrOverflow.
func MulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// MulDivU64 returns floor(a*mul/div) using a 128-bit intermediate so the
// product never wraps. It fails when div is zero or the quotient exceeds the
// unsigned 64-bit range.
func MulDivU64(a, mul, div uint64) (uint64, error) {
	if div == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, mul)
	if hi >= div {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, div)
	return quo, nil
}

// BpsShare returns floor(amount*bps/10000).
func BpsShare(amount, bps uint64) (uint64, error) {
	return MulDivU64(amount, bps, BasisPointsDenominator)
}
