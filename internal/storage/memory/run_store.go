package memory

import (
	"context"
	"sort"
	"sync"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProfileRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.ProfileRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.ProfileRun) error {
	if r == nil || r.RunID == "" || r.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.ProfileRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetBySymbol retrieves all runs for a symbol, newest first.
func (s *RunStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.ProfileRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProfileRun
	for _, r := range s.data {
		if r.Symbol == symbol {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs > result[j].CreatedAtMs
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// Delete removes a run. Returns ErrNotFound if not exists.
func (s *RunStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, runID)
	return nil
}

var _ storage.RunStore = (*RunStore)(nil)
