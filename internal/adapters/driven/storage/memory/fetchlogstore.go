package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure FetchLogStore implements the interface.
var _ driven.FetchLogStore = (*FetchLogStore)(nil)

// FetchLogStore is an in-memory implementation of driven.FetchLogStore.
type FetchLogStore struct {
	mu   sync.RWMutex
	logs []domain.FetchLog
}

// NewFetchLogStore creates a new in-memory fetch log store.
func NewFetchLogStore() *FetchLogStore {
	return &FetchLogStore{}
}

// Record stores a fetch log row.
func (s *FetchLogStore) Record(_ context.Context, log *domain.FetchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

// AddItemCount increments the accepted-item count for a log row.
func (s *FetchLogStore) AddItemCount(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].ID == id {
			s.logs[i].ItemCount += delta
			return nil
		}
	}
	return fmt.Errorf("%w: fetch log %q", domain.ErrNotFound, id)
}

// LatestStatus returns the most recent fetch status per source.
func (s *FetchLogStore) LatestStatus(_ context.Context) (map[domain.Source]domain.FetchStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[domain.Source]domain.FetchLog)
	for _, log := range s.logs {
		prev, ok := latest[log.Source]
		if !ok || log.FetchedAt.After(prev.FetchedAt) {
			latest[log.Source] = log
		}
	}
	result := make(map[domain.Source]domain.FetchStatus, len(latest))
	for source, log := range latest {
		result[source] = log.Status
	}
	return result, nil
}

// All returns every recorded log row, for tests.
func (s *FetchLogStore) All() []domain.FetchLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FetchLog, len(s.logs))
	copy(out, s.logs)
	return out
}
