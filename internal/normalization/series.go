package normalization

import (
	"pbv-lab/internal/domain"
)

// AlignTrades collapses trades into one series point per (symbol, timestamp_ms).
// Trades are sorted in place by SortTrades first.
//
// Aggregation for same (symbol, timestamp_ms):
//   - price = LAST(price) by sequence
//   - volume = SUM(quantity)
//   - trade_count = COUNT(*)
func AlignTrades(trades []*domain.Trade) []*domain.SeriesPoint {
	if len(trades) == 0 {
		return nil
	}
	SortTrades(trades)

	var result []*domain.SeriesPoint
	var current *domain.SeriesPoint

	for _, tr := range trades {
		if current == nil || current.Symbol != tr.Symbol || current.TimestampMs != tr.TimestampMs {
			if current != nil {
				result = append(result, current)
			}
			current = &domain.SeriesPoint{
				Symbol:      tr.Symbol,
				TimestampMs: tr.TimestampMs,
				Price:       tr.Price,
				Volume:      tr.Quantity,
				TradeCount:  1,
			}
			continue
		}
		current.Price = tr.Price
		current.Volume += tr.Quantity
		current.TradeCount++
	}

	if current != nil {
		result = append(result, current)
	}
	return result
}

// Columns splits points into the aligned price and volume columns the
// profile engine consumes.
func Columns(points []*domain.SeriesPoint) (price, volume []float64) {
	price = make([]float64, len(points))
	volume = make([]float64, len(points))
	for i, p := range points {
		price[i] = p.Price
		volume[i] = p.Volume
	}
	return price, volume
}
