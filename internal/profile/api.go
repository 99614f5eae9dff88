package profile

import "context"

// PriceByVolume computes full histograms on the calling goroutine.
// Volumes are never normalized.
func PriceByVolume(price, volume []float64, p Params) ([]*Histogram, error) {
	p.Pct = false
	return NewEngine(Sequential{}).Histograms(context.Background(), price, volume, p)
}

// PriceByVolumePar computes the same rows as PriceByVolume using all CPUs.
func PriceByVolumePar(price, volume []float64, p Params) ([]*Histogram, error) {
	p.Pct = false
	return NewEngine(Parallel{}).Histograms(context.Background(), price, volume, p)
}

// PriceByVolumePct computes full histograms in parallel with each window's
// volumes expressed as fractions of the window total.
func PriceByVolumePct(price, volume []float64, p Params) ([]*Histogram, error) {
	p.Pct = true
	return NewEngine(Parallel{}).Histograms(context.Background(), price, volume, p)
}

// TopNPrices returns the labels of the n highest-volume bins per position.
func TopNPrices(price, volume []float64, p TopNParams) ([]TopN, error) {
	p.Pct = false
	return NewEngine(Parallel{}).TopNPrices(context.Background(), price, volume, p)
}

// TopNVolumes returns the volumes of the n highest-volume bins per position.
func TopNVolumes(price, volume []float64, p TopNParams) ([]TopN, error) {
	return NewEngine(Parallel{}).TopNVolumes(context.Background(), price, volume, p)
}
