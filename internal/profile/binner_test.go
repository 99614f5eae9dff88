package profile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filterBin is the per-bin membership rule: [lower, upper) for every bin but
// the last, >= lower for the last.
func filterBin(p, lo, interval float64, bins int) int {
	for n := 0; n < bins; n++ {
		lower := lo + float64(n)*interval
		upper := lo + float64(n+1)*interval
		if n == bins-1 {
			if p >= lower {
				return n
			}
			continue
		}
		if p >= lower && p < upper {
			return n
		}
	}
	return -1
}

func TestBinWindow_ThreePoints(t *testing.T) {
	labels, volumes, err := binWindow([]float64{1, 2, 3}, []float64{10, 20, 30}, 2, false)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, labels)
	assert.Equal(t, []float64{10, 50}, volumes)
}

func TestBinWindow_CenterLabels(t *testing.T) {
	labels, _, err := binWindow([]float64{1, 2, 3}, []float64{10, 20, 30}, 2, true)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, 2.5}, labels)
}

func TestBinWindow_DegenerateWindow(t *testing.T) {
	// Constant price: every volume lands in the terminal bin
	labels, volumes, err := binWindow(
		[]float64{10, 10, 10, 10},
		[]float64{1, 2, 3, 4},
		3, false,
	)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 10, 10}, labels)
	assert.Equal(t, []float64{0, 0, 10}, volumes)
}

func TestBinWindow_NaNPriceMatchesNoBin(t *testing.T) {
	_, volumes, err := binWindow([]float64{1, math.NaN(), 3}, []float64{1, 2, 3}, 2, false)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3}, volumes)
}

func TestBinWindow_AllNaNPrices(t *testing.T) {
	labels, volumes, err := binWindow([]float64{math.NaN(), math.NaN()}, []float64{1, 2}, 2, false)
	require.NoError(t, err)

	for _, l := range labels {
		assert.True(t, math.IsNaN(l))
	}
	assert.Equal(t, []float64{0, 0}, volumes)
}

func TestBinWindow_EmptyWindow(t *testing.T) {
	_, _, err := binWindow(nil, nil, 3, false)
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, _, err = binWindow([]float64{1, 2}, []float64{1}, 3, false)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestBinIndex_MatchesFilter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 500; trial++ {
		bins := 1 + rng.Intn(40)
		lo := rng.Float64() * 100
		hi := lo + rng.Float64()*rng.Float64()*10
		interval := (hi - lo) / float64(bins)

		prices := []float64{lo, hi}
		for n := 0; n <= bins; n++ {
			// Exact bin bounds are where rounding bites
			prices = append(prices, lo+float64(n)*interval)
		}
		for k := 0; k < 20; k++ {
			prices = append(prices, lo+rng.Float64()*(hi-lo))
		}

		for _, p := range prices {
			if p > hi {
				continue
			}
			want := filterBin(p, lo, interval, bins)
			got := binIndex(p, lo, interval, bins)
			if got != want {
				t.Fatalf("binIndex(%v, lo=%v, interval=%v, bins=%d) = %d, want %d", p, lo, interval, bins, got, want)
			}
		}
	}
}

func TestBinIndex_MaximumInTerminalBin(t *testing.T) {
	cases := []struct {
		lo, hi float64
		bins   int
	}{
		{0.1, 0.3, 3},
		{0.1, 0.7, 7},
		{1e-9, 3e-9, 3},
		{100, 106, 20},
		{-5.5, 0.3, 11},
	}

	for _, c := range cases {
		interval := (c.hi - c.lo) / float64(c.bins)
		if got := binIndex(c.hi, c.lo, interval, c.bins); got != c.bins-1 {
			t.Errorf("max %v of [%v,%v] with %d bins landed in bin %d", c.hi, c.lo, c.hi, c.bins, got)
		}
	}
}

func TestPriceRange(t *testing.T) {
	lo, hi, ok := priceRange([]float64{3, math.NaN(), -1, 7})
	require.True(t, ok)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	_, _, ok = priceRange([]float64{math.NaN()})
	assert.False(t, ok)
}

func TestBinWindow_InfinitePriceFollowsBounds(t *testing.T) {
	tests := []struct {
		name  string
		price []float64
		want  []float64
	}{
		{"positive infinity", []float64{1, 2, math.Inf(1)}, []float64{0, 30}},
		{"negative infinity", []float64{math.Inf(-1), 1, 2}, []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			volume := []float64{10, 20, 30}
			labels, volumes, err := binWindow(tt.price, volume, 2, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, volumes)

			lo, hi, _ := priceRange(tt.price)
			interval := (hi - lo) / 2
			want := make([]float64, 2)
			for k, p := range tt.price {
				if n := filterBin(p, lo, interval, 2); n >= 0 {
					want[n] += volume[k]
				}
			}
			assert.Equal(t, want, volumes)
			assert.True(t, math.IsNaN(labels[0]))
		})
	}
}
