package clickhouse

import (
	"context"
	"fmt"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// ProfileStore implements storage.ProfileStore using ClickHouse.
type ProfileStore struct {
	conn *Conn
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(conn *Conn) *ProfileStore {
	return &ProfileStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

// chRows is the subset of driver.Rows used by the scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, position).
// MergeTree does not enforce keys, so duplicates are checked before sending.
func (s *ProfileStore) InsertBulk(ctx context.Context, rows []*domain.ProfileRow) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		runID    string
		position int
	}
	seen := make(map[key]struct{}, len(rows))
	runs := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || len(r.Labels) != len(r.Volumes) {
			return storage.ErrInvalidInput
		}
		k := key{r.RunID, r.Position}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[r.RunID] = struct{}{}
	}

	for runID := range runs {
		existing, err := s.positions(ctx, runID)
		if err != nil {
			return fmt.Errorf("check existing positions: %w", err)
		}
		for _, pos := range existing {
			if _, clash := seen[key{runID, pos}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO profile_rows (run_id, symbol, timestamp_ms, position, labels, volumes)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(r.RunID, r.Symbol, uint64(r.TimestampMs), uint32(r.Position), r.Labels, r.Volumes)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all rows of a run, ordered by position ASC.
func (s *ProfileStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ProfileRow, error) {
	query := `
		SELECT run_id, symbol, timestamp_ms, position, labels, volumes
		FROM profile_rows
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanProfileRows(rows)
}

// GetByTimeRange retrieves rows of a run within [start, end] (inclusive).
func (s *ProfileStore) GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.ProfileRow, error) {
	query := `
		SELECT run_id, symbol, timestamp_ms, position, labels, volumes
		FROM profile_rows
		WHERE run_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY position ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanProfileRows(rows)
}

// DeleteByRunID removes every row of a run and waits for the mutation.
func (s *ProfileStore) DeleteByRunID(ctx context.Context, runID string) error {
	err := s.conn.Exec(ctx, `ALTER TABLE profile_rows DELETE WHERE run_id = ? SETTINGS mutations_sync = 1`, runID)
	if err != nil {
		return fmt.Errorf("delete rows of run %s: %w", runID, err)
	}
	return nil
}

// positions lists stored positions of a run.
func (s *ProfileStore) positions(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.conn.Query(ctx, `SELECT position FROM profile_rows WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var pos uint32
		if err := rows.Scan(&pos); err != nil {
			return nil, err
		}
		out = append(out, int(pos))
	}
	return out, rows.Err()
}

// scanProfileRows scans multiple rows.
func scanProfileRows(rows chRows) ([]*domain.ProfileRow, error) {
	var result []*domain.ProfileRow

	for rows.Next() {
		var r domain.ProfileRow
		var timestampMs uint64
		var position uint32

		if err := rows.Scan(&r.RunID, &r.Symbol, &timestampMs, &position, &r.Labels, &r.Volumes); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		r.Position = int(position)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}
	return result, nil
}
