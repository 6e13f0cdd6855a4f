package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure RejectedStore implements the interface.
var _ driven.RejectedStore = (*RejectedStore)(nil)

// RejectedStore is an in-memory implementation of driven.RejectedStore.
type RejectedStore struct {
	mu       sync.RWMutex
	rejected []domain.RejectedItem
}

// NewRejectedStore creates a new in-memory rejected-item store.
func NewRejectedStore() *RejectedStore {
	return &RejectedStore{}
}

// Insert records a rejection.
func (s *RejectedStore) Insert(_ context.Context, rejected *domain.RejectedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, *rejected)
	return nil
}

// ListByRun returns rejections recorded during a run.
func (s *RejectedStore) ListByRun(_ context.Context, runID string) ([]domain.RejectedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.RejectedItem
	for _, r := range s.rejected {
		if r.Candidate.RunID == runID {
			result = append(result, r)
		}
	}
	return result, nil
}

// All returns every recorded rejection, for tests.
func (s *RejectedStore) All() []domain.RejectedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RejectedItem, len(s.rejected))
	copy(out, s.rejected)
	return out
}
