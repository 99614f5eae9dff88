package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, symbol, from_ms, to_ms, window_size, bins, center_label,
	round_digits, pct, rows_written, status, created_at_ms
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.ProfileRun) error {
	if r == nil || r.RunID == "" || r.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO profile_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Symbol, r.FromMs, r.ToMs, r.WindowSize, r.Bins, r.CenterLabel,
		r.Round, r.Pct, r.Rows, r.Status, r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert profile run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.ProfileRun, error) {
	query := `SELECT ` + runColumns + ` FROM profile_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get profile run: %w", err)
	}
	return r, nil
}

// GetBySymbol retrieves all runs for a symbol, newest first.
func (s *RunStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.ProfileRun, error) {
	query := `SELECT ` + runColumns + ` FROM profile_runs
		WHERE symbol = $1
		ORDER BY created_at_ms DESC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query runs by symbol: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ProfileRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run. Returns ErrNotFound if not exists.
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profile_runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete profile run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanRun(row pgx.Row) (*domain.ProfileRun, error) {
	var r domain.ProfileRun
	err := row.Scan(
		&r.RunID, &r.Symbol, &r.FromMs, &r.ToMs, &r.WindowSize, &r.Bins, &r.CenterLabel,
		&r.Round, &r.Pct, &r.Rows, &r.Status, &r.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
