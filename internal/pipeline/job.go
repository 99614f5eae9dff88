package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/idhash"
	"pbv-lab/internal/normalization"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage"
)

// ErrNoSeries is returned when the requested symbol range holds no points.
var ErrNoSeries = fmt.Errorf("%w: no series points", storage.ErrNotFound)

// Request selects a series and the parameters to profile it with.
// A zero FromMs and ToMs selects the whole series.
type Request struct {
	Symbol  string
	FromMs  int64
	ToMs    int64
	Params  profile.Params
	Replace bool // recompute a run that already exists
}

// Job loads a series, computes full histograms and stores the non-null rows.
type Job struct {
	series  storage.SeriesStore
	runs    storage.RunStore
	rows    storage.ProfileStore
	engine  *profile.Engine
	metrics *observability.Metrics // optional
	log     logrus.FieldLogger
	clock   func() time.Time
}

// NewJob creates a job. A nil engine computes sequentially.
func NewJob(series storage.SeriesStore, runs storage.RunStore, rows storage.ProfileStore, engine *profile.Engine) *Job {
	if engine == nil {
		engine = profile.NewEngine(nil)
	}
	return &Job{
		series: series,
		runs:   runs,
		rows:   rows,
		engine: engine,
		log:    logrus.StandardLogger(),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger sets the logger.
func (j *Job) WithLogger(log logrus.FieldLogger) *Job {
	j.log = log
	return j
}

// WithMetrics enables Prometheus recording.
func (j *Job) WithMetrics(m *observability.Metrics) *Job {
	j.metrics = m
	return j
}

// WithClock sets a custom clock function for deterministic output.
func (j *Job) WithClock(clock func() time.Time) *Job {
	j.clock = clock
	return j
}

// Run executes one profile run and returns its stored record.
// An existing run yields storage.ErrDuplicateKey unless req.Replace is set.
func (j *Job) Run(ctx context.Context, req Request) (*domain.ProfileRun, error) {
	start := j.clock()
	req.Params.Pct = false

	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", profile.ErrInvalidParameter)
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.ToMs < req.FromMs {
		return nil, fmt.Errorf("%w: range end %d before start %d", profile.ErrInvalidParameter, req.ToMs, req.FromMs)
	}

	runID := idhash.ComputeRunID(req.Symbol, domain.ModeFull, profile.TopNParams{Params: req.Params}, req.FromMs, req.ToMs)
	log := j.log.WithFields(logrus.Fields{"symbol": req.Symbol, "run_id": runID})

	previous, err := j.existing(ctx, runID, req.Replace)
	if err != nil {
		return nil, err
	}

	run, err := j.compute(ctx, runID, req, previous)
	elapsed := j.clock().Sub(start)
	if err != nil {
		log.WithError(err).Error("profile run failed")
		j.recordRun(domain.RunStatusFailed, 0, elapsed)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"rows":        run.Rows,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("profile run stored")
	j.recordRun(domain.RunStatusDone, run.Rows, elapsed)
	return run, nil
}

// Load returns a stored run and its rows.
func (j *Job) Load(ctx context.Context, runID string) (*domain.ProfileRun, []*domain.ProfileRow, error) {
	run, err := j.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	rows, err := j.rows.GetByRunID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get rows of run %s: %w", runID, err)
	}
	return run, rows, nil
}

// Runs lists the stored runs of a symbol, newest first.
func (j *Job) Runs(ctx context.Context, symbol string) ([]*domain.ProfileRun, error) {
	return j.runs.GetBySymbol(ctx, symbol)
}

// existing returns the stored run with runID, or nil when there is none.
func (j *Job) existing(ctx context.Context, runID string, replace bool) (*domain.ProfileRun, error) {
	run, err := j.runs.GetByID(ctx, runID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("look up run %s: %w", runID, err)
	case !replace:
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrDuplicateKey)
	}
	return run, nil
}

// compute builds the rows of a run and stores them. A previous run with the
// same id is removed only once the new rows are ready, and is put back if
// storing the new run fails.
func (j *Job) compute(ctx context.Context, runID string, req Request, previous *domain.ProfileRun) (*domain.ProfileRun, error) {
	points, err := j.loadSeries(ctx, req)
	if err != nil {
		return nil, err
	}

	price, volume := normalization.Columns(points)
	computeStart := time.Now()
	hists, err := j.engine.Histograms(ctx, price, volume, req.Params)
	if j.metrics != nil {
		j.metrics.RecordProfile(domain.ModeFull, len(hists), time.Since(computeStart).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("compute histograms: %w", err)
	}
	rows := ProfileRows(runID, req.Symbol, points, hists)

	run := &domain.ProfileRun{
		RunID:       runID,
		Symbol:      req.Symbol,
		FromMs:      req.FromMs,
		ToMs:        req.ToMs,
		WindowSize:  req.Params.WindowSize,
		Bins:        req.Params.Bins,
		CenterLabel: req.Params.CenterLabel,
		Round:       req.Params.Round,
		Pct:         req.Params.Pct,
		Rows:        len(rows),
		Status:      domain.RunStatusDone,
		CreatedAtMs: j.clock().UnixMilli(),
	}

	var previousRows []*domain.ProfileRow
	if previous != nil {
		if previousRows, err = j.rows.GetByRunID(ctx, runID); err != nil {
			return nil, fmt.Errorf("get rows of run %s: %w", runID, err)
		}
		if err := j.remove(ctx, runID); err != nil {
			return nil, err
		}
		j.log.WithField("run_id", runID).Info("replacing existing profile run")
	}

	if err := j.store(ctx, run, rows); err != nil {
		if previous != nil {
			j.restore(previous, previousRows)
		}
		return nil, err
	}
	return run, nil
}

// store writes rows then the run record. Rows already written are removed
// when the run record cannot be stored.
func (j *Job) store(ctx context.Context, run *domain.ProfileRun, rows []*domain.ProfileRow) error {
	if len(rows) > 0 {
		err := j.observe("profile", "insert_bulk", func() error { return j.rows.InsertBulk(ctx, rows) })
		if err != nil {
			j.discardRows(run.RunID)
			return fmt.Errorf("store profile rows: %w", err)
		}
	}
	if err := j.observe("run", "insert", func() error { return j.runs.Insert(ctx, run) }); err != nil {
		if len(rows) > 0 {
			j.discardRows(run.RunID)
		}
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

func (j *Job) remove(ctx context.Context, runID string) error {
	if err := j.rows.DeleteByRunID(ctx, runID); err != nil {
		return fmt.Errorf("delete rows of run %s: %w", runID, err)
	}
	if err := j.runs.Delete(ctx, runID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// discardRows runs detached from the request context so a cancelled
// request still cleans up.
func (j *Job) discardRows(runID string) {
	if err := j.rows.DeleteByRunID(context.Background(), runID); err != nil {
		j.log.WithError(err).WithField("run_id", runID).Error("failed to discard partial profile rows")
	}
}

func (j *Job) restore(run *domain.ProfileRun, rows []*domain.ProfileRow) {
	ctx := context.Background()
	log := j.log.WithField("run_id", run.RunID)
	if len(rows) > 0 {
		if err := j.rows.InsertBulk(ctx, rows); err != nil {
			log.WithError(err).Error("failed to restore previous profile rows")
			return
		}
	}
	if err := j.runs.Insert(ctx, run); err != nil {
		log.WithError(err).Error("failed to restore previous profile run")
		return
	}
	log.Warn("restored previous profile run after failed replace")
}

// ProfileRows keeps the non-null histograms as rows positioned by their
// index in points.
func ProfileRows(runID, symbol string, points []*domain.SeriesPoint, hists []*profile.Histogram) []*domain.ProfileRow {
	rows := make([]*domain.ProfileRow, 0, len(hists))
	for i, h := range hists {
		if h == nil {
			continue
		}
		rows = append(rows, &domain.ProfileRow{
			RunID:       runID,
			Symbol:      symbol,
			TimestampMs: points[i].TimestampMs,
			Position:    i,
			Labels:      h.Labels,
			Volumes:     h.Volumes,
		})
	}
	return rows
}

func (j *Job) loadSeries(ctx context.Context, req Request) ([]*domain.SeriesPoint, error) {
	var points []*domain.SeriesPoint
	err := j.observe("series", "load", func() error {
		var err error
		if req.FromMs == 0 && req.ToMs == 0 {
			points, err = j.series.GetBySymbol(ctx, req.Symbol)
		} else {
			points, err = j.series.GetByTimeRange(ctx, req.Symbol, req.FromMs, req.ToMs)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", req.Symbol, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w for %s in [%d, %d]", ErrNoSeries, req.Symbol, req.FromMs, req.ToMs)
	}
	return points, nil
}

func (j *Job) observe(store, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if j.metrics != nil {
		j.metrics.RecordDBQuery(store, operation, time.Since(start).Seconds(), err)
	}
	return err
}

func (j *Job) recordRun(status string, rows int, elapsed time.Duration) {
	if j.metrics != nil {
		j.metrics.RecordPipelineRun(status, rows, elapsed.Seconds(), j.clock().Unix())
	}
}
