package domain

// SeriesPoint is one aligned (price, volume) observation of a symbol.
// Corresponds to series_points table in PostgreSQL.
type SeriesPoint struct {
	Symbol      string  // instrument identifier
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // last traded price at this timestamp
	Volume      float64 // total traded quantity at this timestamp
	TradeCount  int     // number of trades aggregated
}

// Trade is a single execution before alignment into a series.
type Trade struct {
	Symbol      string
	TimestampMs int64
	Seq         int64 // exchange sequence, breaks ties within a timestamp
	Price       float64
	Quantity    float64
}
