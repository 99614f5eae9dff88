package storage

import (
	"context"

	"pbv-lab/internal/domain"
)

// SeriesStore provides access to series_points storage.
type SeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error

	// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.SeriesPoint, error)

	// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.SeriesPoint, error)

	// ListSymbols returns every symbol with at least one point, sorted ASC.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunStore provides access to profile_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ProfileRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ProfileRun, error)

	// GetBySymbol retrieves all runs for a symbol, newest first.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.ProfileRun, error)

	// Delete removes a run. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, runID string) error
}

// ProfileStore provides access to profile_rows storage.
type ProfileStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, position).
	InsertBulk(ctx context.Context, rows []*domain.ProfileRow) error

	// GetByRunID retrieves all rows of a run, ordered by position ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ProfileRow, error)

	// GetByTimeRange retrieves rows of a run within [start, end] (inclusive), ordered by position ASC.
	GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.ProfileRow, error)

	// DeleteByRunID removes every row of a run. Deleting an unknown run is not an error.
	DeleteByRunID(ctx context.Context, runID string) error
}
