package idhash

import (
	"testing"

	"github.com/mr-tron/base58"

	"pbv-lab/internal/profile"
)

func baseParams() profile.TopNParams {
	return profile.TopNParams{
		Params: profile.Params{WindowSize: 6, Bins: 3, CenterLabel: true, Round: 2},
	}
}

func TestComputeRunID_Decodes(t *testing.T) {
	id := ComputeRunID("BTCUSDT", "full", baseParams(), 1000, 7000)

	raw, err := base58.Decode(id)
	if err != nil {
		t.Fatalf("ComputeRunID() produced invalid base58 %q: %v", id, err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded length = %d, want 32", len(raw))
	}
}

func TestComputeRunID_Determinism(t *testing.T) {
	first := ComputeRunID("BTCUSDT", "full", baseParams(), 1000, 7000)
	for i := 0; i < 10; i++ {
		if got := ComputeRunID("BTCUSDT", "full", baseParams(), 1000, 7000); got != first {
			t.Errorf("Determinism failed: run %d = %s, want %s", i, got, first)
		}
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID("BTCUSDT", "full", baseParams(), 1000, 7000)

	tests := []struct {
		name   string
		symbol string
		mode   string
		mutate func(p *profile.TopNParams)
		from   int64
		to     int64
	}{
		{name: "symbol", symbol: "ETHUSDT", mode: "full", from: 1000, to: 7000},
		{name: "mode", symbol: "BTCUSDT", mode: "topn-price", from: 1000, to: 7000},
		{name: "range", symbol: "BTCUSDT", mode: "full", from: 1000, to: 8000},
		{name: "window", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.WindowSize = 7 }},
		{name: "bins", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.Bins = 4 }},
		{name: "center", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.CenterLabel = false }},
		{name: "round", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.Round = -1 }},
		{name: "pct", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.Pct = true }},
		{name: "n", symbol: "BTCUSDT", mode: "full", from: 1000, to: 7000, mutate: func(p *profile.TopNParams) { p.N = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			if got := ComputeRunID(tt.symbol, tt.mode, p, tt.from, tt.to); got == base {
				t.Errorf("changing %s should change the run id", tt.name)
			}
		})
	}
}
