package normalization

import (
	"sort"

	"pbv-lab/internal/domain"
)

// SortTrades orders trades by (symbol ASC, timestamp_ms ASC, seq ASC).
// The sort is stable so trades with equal keys keep their input order.
func SortTrades(trades []*domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return compareTrades(trades[i], trades[j]) < 0
	})
}

// compareTrades returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareTrades(a, b *domain.Trade) int {
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return 0
}
