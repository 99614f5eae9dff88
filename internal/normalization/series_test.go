package normalization

import (
	"testing"

	"pbv-lab/internal/domain"
)

func TestAlignTrades(t *testing.T) {
	trades := []*domain.Trade{
		{Symbol: "BTC", TimestampMs: 2000, Seq: 3, Price: 102, Quantity: 1},
		{Symbol: "BTC", TimestampMs: 1000, Seq: 2, Price: 101, Quantity: 2},
		{Symbol: "BTC", TimestampMs: 1000, Seq: 1, Price: 100, Quantity: 3},
		{Symbol: "ETH", TimestampMs: 1000, Seq: 1, Price: 10, Quantity: 5},
	}

	got := AlignTrades(trades)
	if len(got) != 3 {
		t.Fatalf("AlignTrades() returned %d points, want 3", len(got))
	}

	want := []domain.SeriesPoint{
		{Symbol: "BTC", TimestampMs: 1000, Price: 101, Volume: 5, TradeCount: 2},
		{Symbol: "BTC", TimestampMs: 2000, Price: 102, Volume: 1, TradeCount: 1},
		{Symbol: "ETH", TimestampMs: 1000, Price: 10, Volume: 5, TradeCount: 1},
	}
	for i, w := range want {
		if *got[i] != w {
			t.Errorf("point %d = %+v, want %+v", i, *got[i], w)
		}
	}
}

func TestAlignTrades_Empty(t *testing.T) {
	if got := AlignTrades(nil); got != nil {
		t.Errorf("AlignTrades(nil) = %v, want nil", got)
	}
}

func TestSortTrades_StableOnEqualKeys(t *testing.T) {
	a := &domain.Trade{Symbol: "BTC", TimestampMs: 1, Seq: 0, Price: 1}
	b := &domain.Trade{Symbol: "BTC", TimestampMs: 1, Seq: 0, Price: 2}
	trades := []*domain.Trade{a, b}

	SortTrades(trades)
	if trades[0] != a || trades[1] != b {
		t.Error("SortTrades() reordered trades with equal keys")
	}
}

func TestColumns(t *testing.T) {
	points := []*domain.SeriesPoint{
		{Price: 100, Volume: 200},
		{Price: 101, Volume: 220},
	}

	price, volume := Columns(points)
	if len(price) != 2 || price[0] != 100 || price[1] != 101 {
		t.Errorf("price = %v, want [100 101]", price)
	}
	if len(volume) != 2 || volume[0] != 200 || volume[1] != 220 {
		t.Errorf("volume = %v, want [200 220]", volume)
	}

	p, v := Columns(nil)
	if len(p) != 0 || len(v) != 0 {
		t.Errorf("Columns(nil) = %v, %v, want empty", p, v)
	}
}
