package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using PostgreSQL.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

const insertSeriesPoint = `
	INSERT INTO series_points (symbol, timestamp_ms, price, volume, trade_count)
	VALUES ($1, $2, $3, $4, $5)
`

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *SeriesStore) InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(insertSeriesPoint, p.Symbol, p.TimestampMs, p.Price, p.Volume, p.TradeCount)
	}

	br := tx.SendBatch(ctx, batch)
	for range points {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert series point: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
func (s *SeriesStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.SeriesPoint, error) {
	query := `
		SELECT symbol, timestamp_ms, price, volume, trade_count
		FROM series_points
		WHERE symbol = $1
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanSeriesPoints(rows)
}

// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
func (s *SeriesStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.SeriesPoint, error) {
	query := `
		SELECT symbol, timestamp_ms, price, volume, trade_count
		FROM series_points
		WHERE symbol = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSeriesPoints(rows)
}

// ListSymbols returns every stored symbol, sorted ASC.
func (s *SeriesStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM series_points ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect symbols: %w", err)
	}
	return symbols, nil
}

// scanSeriesPoints scans multiple rows.
func scanSeriesPoints(rows pgx.Rows) ([]*domain.SeriesPoint, error) {
	var points []*domain.SeriesPoint
	for rows.Next() {
		var p domain.SeriesPoint
		if err := rows.Scan(&p.Symbol, &p.TimestampMs, &p.Price, &p.Volume, &p.TradeCount); err != nil {
			return nil, fmt.Errorf("scan series point: %w", err)
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series points: %w", err)
	}
	return points, nil
}
