package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeriesPoint // keyed by (symbol, timestamp_ms)
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]*domain.SeriesPoint),
	}
}

// seriesKey generates a unique key for a series point.
func seriesKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *SeriesStore) InsertBulk(_ context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))

	// First pass: validate and check duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := seriesKey(p.Symbol, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[seriesKey(p.Symbol, p.TimestampMs)] = &pointCopy
	}

	return nil
}

// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
func (s *SeriesStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.SeriesPoint, error) {
	return s.collect(func(p *domain.SeriesPoint) bool {
		return p.Symbol == symbol
	}), nil
}

// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
func (s *SeriesStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.SeriesPoint, error) {
	return s.collect(func(p *domain.SeriesPoint) bool {
		return p.Symbol == symbol && p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

// ListSymbols returns every stored symbol, sorted ASC.
func (s *SeriesStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.data {
		seen[p.Symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *SeriesStore) collect(match func(*domain.SeriesPoint) bool) []*domain.SeriesPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeriesPoint
	for _, p := range s.data {
		if match(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
