// Package fixedpoint implements the Q1.15 and Q1.31 signed fixed-point
// formats used throughout the synth's hot path. Wrapping both formats
// in newtypes keeps the saturation and truncation policy in one place,
// matching the shape of the original firmware's q1x15.h/q1x31.h.
package fixedpoint

import "math"

// Q15 is a signed Q1.15 fixed-point value: 1 sign bit, 15 fractional
// bits, range [-1, +1) at a resolution of 2^-15.
type Q15 int16

const (
	Q15Zero Q15 = 0
	Q15One  Q15 = math.MaxInt16
)

// NewQ15 converts a float in [-1, 1] to Q15, clamping on overflow.
func NewQ15(v float64) Q15 {
	return clampQ15(int64(v * float64(math.MaxInt16)))
}

// Float64 converts a Q15 value back to a float by dividing by Q15One,
// so Q15One maps to exactly 1.0.
func (q Q15) Float64() float64 {
	return float64(q) / float64(math.MaxInt16)
}

// Add saturates on overflow rather than wrapping.
func (q Q15) Add(other Q15) Q15 {
	return clampQ15(int64(q) + int64(other))
}

// Sub saturates on overflow rather than wrapping.
func (q Q15) Sub(other Q15) Q15 {
	return clampQ15(int64(q) - int64(other))
}

// Mul truncates by arithmetic shift: (a*b) >> 15, which rounds toward
// negative infinity.
func (q Q15) Mul(other Q15) Q15 {
	return Q15((int32(q) * int32(other)) >> 15)
}

func clampQ15(v int64) Q15 {
	if v > math.MaxInt16 {
		return Q15One
	}
	if v < -math.MaxInt16 {
		return -Q15One
	}
	return Q15(v)
}
