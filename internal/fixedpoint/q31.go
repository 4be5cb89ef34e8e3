package fixedpoint

import "math"

// Q31 is a signed Q1.31 fixed-point value: 1 sign bit, 31 fractional
// bits, range [-1, +1) at a resolution of 2^-31. Envelope levels live
// in this format because 15 bits of precision isn't enough headroom
// for a slow multi-second attack/decay ramp without audible stairstep.
type Q31 int32

const (
	Q31Zero   Q31 = 0
	Q31One    Q31 = math.MaxInt32
	Q31NegOne Q31 = math.MinInt32
)

// NewQ31 converts a float in [-1, 1] to Q31, clamping on overflow.
func NewQ31(v float64) Q31 {
	return clampQ31(int64(v * float64(math.MaxInt32)))
}

// Float64 converts a Q31 value back to a float by dividing by Q31One,
// so Q31One maps to exactly 1.0.
func (q Q31) Float64() float64 {
	return float64(q) / float64(math.MaxInt32)
}

// Add saturates on overflow rather than wrapping.
func (q Q31) Add(other Q31) Q31 {
	return clampQ31(int64(q) + int64(other))
}

// Sub saturates on overflow rather than wrapping.
func (q Q31) Sub(other Q31) Q31 {
	return clampQ31(int64(q) - int64(other))
}

// ToQ15 is the lossy downconversion used once per sample to bring an
// envelope level into the oscillator's native format: shift away the
// low 16 bits, then clamp into Q15 range.
func (q Q31) ToQ15() Q15 {
	return clampQ15(int64(q >> 16))
}

func clampQ31(v int64) Q31 {
	if v > math.MaxInt32 {
		return Q31One
	}
	if v < math.MinInt32 {
		return Q31NegOne
	}
	return Q31(v)
}
