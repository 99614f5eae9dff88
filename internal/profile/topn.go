package profile

import (
	"database/sql"
	"math"
	"sort"
)

// TopN is one non-null top-N output row. Entries past the number of bins
// are null (Valid == false).
type TopN []sql.NullFloat64

// Floats returns the row with null entries mapped to NaN.
func (t TopN) Floats() []float64 {
	out := make([]float64, len(t))
	for i, v := range t {
		if v.Valid {
			out[i] = v.Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rankDescending returns bin indices ordered by volume, highest first.
// Equal volumes keep bin order; NaN volumes rank last.
func rankDescending(volumes []float64) []int {
	idx := make([]int, len(volumes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := volumes[idx[a]], volumes[idx[b]]
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		return va > vb
	})
	return idx
}

// selectTopN picks values at the first n ranked indices and null-pads the rest.
func selectTopN(values []float64, ranked []int, n int) TopN {
	out := make(TopN, n)
	for i := 0; i < n && i < len(ranked); i++ {
		out[i] = sql.NullFloat64{Float64: values[ranked[i]], Valid: true}
	}
	return out
}
