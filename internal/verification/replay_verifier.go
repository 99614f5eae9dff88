package verification

import (
	"context"
	"errors"
	"fmt"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/normalization"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage"
)

// ErrRunNotFound is returned when run ID doesn't exist.
var ErrRunNotFound = fmt.Errorf("%w: run", storage.ErrNotFound)

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	series storage.SeriesStore
	runs   storage.RunStore
	rows   storage.ProfileStore
	engine *profile.Engine
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	SeriesStore  storage.SeriesStore
	RunStore     storage.RunStore
	ProfileStore storage.ProfileStore
	Engine       *profile.Engine // defaults to a sequential engine
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	engine := opts.Engine
	if engine == nil {
		engine = profile.NewEngine(profile.Sequential{})
	}
	return &ReplayVerifier{
		series: opts.SeriesStore,
		runs:   opts.RunStore,
		rows:   opts.ProfileStore,
		engine: engine,
	}
}

// VerifyRun verifies a single run by recomputing it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run and rows
	run, err := v.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	stored, err := v.rows.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	// 2. Replay computation
	replayed, err := v.replayRun(ctx, run)
	if err != nil {
		return nil, err
	}

	// 3. Compare results
	divergences := CompareRows(stored, replayed)
	if run.Rows != len(stored) {
		divergences = append(divergences, FieldDivergence{
			Position: -1,
			Field:    "Rows",
			Expected: run.Rows,
			Actual:   len(stored),
		})
	}

	return &VerificationResult{
		RunID:        runID,
		Match:        len(divergences) == 0,
		Divergences:  divergences,
		StoredRows:   len(stored),
		ReplayedRows: len(replayed),
	}, nil
}

// VerifySymbol verifies all stored runs of a symbol.
func (v *ReplayVerifier) VerifySymbol(ctx context.Context, symbol string) (*VerificationReport, error) {
	runs, err := v.runs.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID:      run.RunID,
				Match:      false,
				StoredRows: run.Rows,
				Divergences: []FieldDivergence{
					{Position: -1, Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// replayRun recomputes the non-null rows of a run from the series store.
func (v *ReplayVerifier) replayRun(ctx context.Context, run *domain.ProfileRun) ([]*domain.ProfileRow, error) {
	var (
		points []*domain.SeriesPoint
		err    error
	)
	if run.FromMs == 0 && run.ToMs == 0 {
		points, err = v.series.GetBySymbol(ctx, run.Symbol)
	} else {
		points, err = v.series.GetByTimeRange(ctx, run.Symbol, run.FromMs, run.ToMs)
	}
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", run.Symbol, err)
	}

	price, volume := normalization.Columns(points)
	hists, err := v.engine.Histograms(ctx, price, volume, profile.Params{
		WindowSize:  run.WindowSize,
		Bins:        run.Bins,
		CenterLabel: run.CenterLabel,
		Round:       run.Round,
	})
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", run.RunID, err)
	}

	return pipeline.ProfileRows(run.RunID, run.Symbol, points, hists), nil
}
