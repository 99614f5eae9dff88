package memory

import (
	"context"
	"sort"
	"sync"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[string]map[int]*domain.ProfileRow // run_id -> position -> row
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[string]map[int]*domain.ProfileRow),
	}
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, position).
func (s *ProfileStore) InsertBulk(_ context.Context, rows []*domain.ProfileRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		runID    string
		position int
	}
	batchKeys := make(map[key]struct{}, len(rows))

	for _, r := range rows {
		if r == nil || r.RunID == "" || len(r.Labels) != len(r.Volumes) {
			return storage.ErrInvalidInput
		}
		k := key{r.RunID, r.Position}
		if _, exists := s.data[r.RunID][r.Position]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range rows {
		run, ok := s.data[r.RunID]
		if !ok {
			run = make(map[int]*domain.ProfileRow)
			s.data[r.RunID] = run
		}
		run[r.Position] = copyRow(r)
	}

	return nil
}

// GetByRunID retrieves all rows of a run, ordered by position ASC.
func (s *ProfileStore) GetByRunID(_ context.Context, runID string) ([]*domain.ProfileRow, error) {
	return s.collect(runID, func(*domain.ProfileRow) bool { return true }), nil
}

// GetByTimeRange retrieves rows of a run within [start, end] (inclusive).
func (s *ProfileStore) GetByTimeRange(_ context.Context, runID string, start, end int64) ([]*domain.ProfileRow, error) {
	return s.collect(runID, func(r *domain.ProfileRow) bool {
		return r.TimestampMs >= start && r.TimestampMs <= end
	}), nil
}

// DeleteByRunID removes every row of a run.
func (s *ProfileStore) DeleteByRunID(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, runID)
	return nil
}

func (s *ProfileStore) collect(runID string, match func(*domain.ProfileRow) bool) []*domain.ProfileRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProfileRow
	for _, r := range s.data[runID] {
		if match(r) {
			result = append(result, copyRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result
}

// copyRow deep-copies a row so callers cannot mutate stored slices.
func copyRow(r *domain.ProfileRow) *domain.ProfileRow {
	rowCopy := *r
	rowCopy.Labels = append([]float64(nil), r.Labels...)
	rowCopy.Volumes = append([]float64(nil), r.Volumes...)
	return &rowCopy
}

var _ storage.ProfileStore = (*ProfileStore)(nil)
