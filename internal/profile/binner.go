package profile

import "math"

// Histogram is one non-null output row of the full profile.
// Labels and Volumes have one entry per bin and correspond element-wise.
type Histogram struct {
	Labels  []float64 `json:"price"`
	Volumes []float64 `json:"volume"`
}

// binWindow partitions the window's price range into bins equal-width bins
// and sums the volume falling into each one.
//
// Bin n covers [lower_n, lower_{n+1}) with lower_n = min + n*interval; the
// last bin is open above so the window maximum is always counted. Returned
// values are raw: no normalization, no rounding.
func binWindow(price, volume []float64, bins int, centerLabel bool) (labels, volumes []float64, err error) {
	if len(price) == 0 || len(price) != len(volume) {
		return nil, nil, ErrEmptyWindow
	}

	labels = make([]float64, bins)
	volumes = make([]float64, bins)

	lo, hi, ok := priceRange(price)
	if !ok {
		// No comparable price in the window: no bin matches anything.
		for n := range labels {
			labels[n] = math.NaN()
		}
		return labels, volumes, nil
	}

	interval := (hi - lo) / float64(bins)
	for n := 0; n < bins; n++ {
		lower := lo + float64(n)*interval
		if centerLabel {
			upper := lo + float64(n+1)*interval
			labels[n] = (lower + upper) / 2
		} else {
			labels[n] = lower
		}
	}

	// An infinite price makes the interval infinite and some bin bounds NaN;
	// such windows are matched bound by bound.
	exact := math.IsInf(interval, 0) || math.IsNaN(interval)

	// Accumulate in window order so sums do not depend on the caller.
	for k, p := range price {
		if math.IsNaN(p) {
			continue
		}
		if exact {
			if n, ok := binByBounds(p, lo, interval, bins); ok {
				volumes[n] += volume[k]
			}
			continue
		}
		volumes[binIndex(p, lo, interval, bins)] += volume[k]
	}

	return labels, volumes, nil
}

// binIndex returns the bin holding price p.
// The estimate from (p-lo)/interval is corrected against the exact bounds so
// membership matches a per-bin [lower, upper) filter under float rounding.
func binIndex(p, lo, interval float64, bins int) int {
	last := bins - 1
	if interval == 0 {
		// Degenerate window: every non-terminal bin is [min, min).
		return last
	}

	k := int((p - lo) / interval)
	if k < 0 {
		k = 0
	} else if k > last {
		k = last
	}
	for k > 0 && p < lo+float64(k)*interval {
		k--
	}
	for k < last && p >= lo+float64(k+1)*interval {
		k++
	}
	return k
}

// binByBounds tests p against each bin's [lower, upper) bounds directly.
// ok is false when no bin admits p.
func binByBounds(p, lo, interval float64, bins int) (int, bool) {
	last := bins - 1
	for n := 0; n < bins; n++ {
		lower := lo + float64(n)*interval
		if !(p >= lower) {
			continue
		}
		if n == last || p < lo+float64(n+1)*interval {
			return n, true
		}
	}
	return 0, false
}

// priceRange returns min and max of the window ignoring NaN.
// ok is false when the window has no comparable price.
func priceRange(price []float64) (lo, hi float64, ok bool) {
	for _, p := range price {
		if math.IsNaN(p) {
			continue
		}
		if !ok {
			lo, hi, ok = p, p, true
			continue
		}
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi, ok
}
