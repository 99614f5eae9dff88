package profile

import (
	"math"

	"github.com/shopspring/decimal"
)

// normalizePct divides every volume by the window total in place.
// A zero total yields NaN for every bin.
func normalizePct(volumes []float64) {
	total := 0.0
	for _, v := range volumes {
		total += v
	}
	for i := range volumes {
		volumes[i] /= total
	}
}

// roundAll rounds values in place to digits decimal places.
// Negative digits leave the values untouched.
func roundAll(values []float64, digits int) {
	if digits < 0 {
		return
	}
	for i, v := range values {
		values[i] = roundHalfAway(v, digits)
	}
}

// roundHalfAway rounds half away from zero on the decimal representation of v.
// NaN and infinities are returned unchanged.
func roundHalfAway(v float64, digits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(int32(digits)).Float64()
	return f
}
