// Package orchestrator runs profile jobs across every stored symbol.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage"
)

// Orchestrator coordinates one pipeline run per symbol.
type Orchestrator struct {
	series      storage.SeriesStore
	job         *pipeline.Job
	concurrency int
	log         logrus.FieldLogger
}

// Options for creating Orchestrator.
type Options struct {
	Series storage.SeriesStore
	Job    *pipeline.Job

	// Concurrency bounds symbols processed at once. Zero means 1.
	Concurrency int
	Log         logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		series:      opts.Series,
		job:         opts.Job,
		concurrency: opts.Concurrency,
		log:         opts.Log,
	}
	if o.concurrency <= 0 {
		o.concurrency = 1
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Symbols    int
	RunsStored int
	RowsStored int
	RunIDs     map[string]string // symbol -> run id
	Errors     []string          // "symbol: error", sorted
}

// Run computes and stores a run for every symbol in the series store.
// A failing symbol is recorded in Errors and does not stop the others;
// only a failure to list symbols or a cancelled context aborts.
func (o *Orchestrator) Run(ctx context.Context, p profile.Params, replace bool) (*RunResult, error) {
	symbols, err := o.series.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	o.log.WithField("symbols", len(symbols)).Info("Starting batch run")

	result := &RunResult{Symbols: len(symbols), RunIDs: make(map[string]string, len(symbols))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			run, err := o.job.Run(gctx, pipeline.Request{Symbol: symbol, Params: p, Replace: replace})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", symbol, err))
				return nil
			}
			result.RunsStored++
			result.RowsStored += run.Rows
			result.RunIDs[symbol] = run.RunID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(result.Errors)
	o.log.WithFields(logrus.Fields{
		"runs":   result.RunsStored,
		"rows":   result.RowsStored,
		"errors": len(result.Errors),
	}).Info("Batch run completed")
	return result, nil
}
