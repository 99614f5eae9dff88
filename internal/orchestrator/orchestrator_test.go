package orchestrator

import (
	"context"
	"strings"
	"testing"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/logx"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage/memory"
)

func seed(t *testing.T, store *memory.SeriesStore, symbol string, n int) {
	t.Helper()
	points := make([]*domain.SeriesPoint, n)
	for i := range points {
		points[i] = &domain.SeriesPoint{Symbol: symbol, TimestampMs: int64(i + 1), Price: float64(100 + i), Volume: float64(10 * (i + 1))}
	}
	if err := store.InsertBulk(context.Background(), points); err != nil {
		t.Fatalf("seed %s: %v", symbol, err)
	}
}

func newOrchestrator(series *memory.SeriesStore, runs *memory.RunStore) *Orchestrator {
	job := pipeline.NewJob(series, runs, memory.NewProfileStore(), profile.NewEngine(profile.Sequential{})).
		WithLogger(logx.Discard())
	return New(Options{Series: series, Job: job, Concurrency: 2, Log: logx.Discard()})
}

func TestOrchestrator_RunsEverySymbol(t *testing.T) {
	series := memory.NewSeriesStore()
	seed(t, series, "AAA", 5)
	seed(t, series, "BBB", 8)
	seed(t, series, "CCC", 3)
	runs := memory.NewRunStore()

	result, err := newOrchestrator(series, runs).Run(context.Background(), profile.Params{WindowSize: 3, Bins: 2, Round: -1}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Symbols != 3 || result.RunsStored != 3 {
		t.Errorf("expected 3 symbols and 3 runs, got %+v", result)
	}
	// 3 + 6 + 1 full windows
	if result.RowsStored != 10 {
		t.Errorf("RowsStored = %d, want 10", result.RowsStored)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	for _, symbol := range []string{"AAA", "BBB", "CCC"} {
		if _, err := runs.GetByID(context.Background(), result.RunIDs[symbol]); err != nil {
			t.Errorf("run for %s not stored: %v", symbol, err)
		}
	}
}

func TestOrchestrator_CollectsPerSymbolErrors(t *testing.T) {
	series := memory.NewSeriesStore()
	seed(t, series, "AAA", 5)
	seed(t, series, "BBB", 5)
	o := newOrchestrator(series, memory.NewRunStore())
	p := profile.Params{WindowSize: 3, Bins: 2, Round: -1}

	if _, err := o.Run(context.Background(), p, false); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Same parameters again without replace: every run already exists.
	result, err := o.Run(context.Background(), p, false)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if result.RunsStored != 0 || len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors and no runs, got %+v", result)
	}
	if !strings.HasPrefix(result.Errors[0], "AAA: ") || !strings.HasPrefix(result.Errors[1], "BBB: ") {
		t.Errorf("errors not sorted by symbol: %v", result.Errors)
	}

	result, err = o.Run(context.Background(), p, true)
	if err != nil {
		t.Fatalf("replace Run failed: %v", err)
	}
	if result.RunsStored != 2 {
		t.Errorf("RunsStored = %d, want 2", result.RunsStored)
	}
}

func TestOrchestrator_EmptyStore(t *testing.T) {
	result, err := newOrchestrator(memory.NewSeriesStore(), memory.NewRunStore()).
		Run(context.Background(), profile.Params{WindowSize: 3, Bins: 2}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Symbols != 0 || result.RunsStored != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	series := memory.NewSeriesStore()
	seed(t, series, "AAA", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newOrchestrator(series, memory.NewRunStore()).Run(ctx, profile.Params{WindowSize: 3, Bins: 2}, false); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
