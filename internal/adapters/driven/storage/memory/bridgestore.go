package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure BridgeStore implements the interface.
var _ driven.BridgeStore = (*BridgeStore)(nil)

// BridgeStore is an in-memory implementation of driven.BridgeStore.
type BridgeStore struct {
	mu      sync.RWMutex
	bridges []domain.BridgeStatement
}

// NewBridgeStore creates a new in-memory bridge store.
func NewBridgeStore() *BridgeStore {
	return &BridgeStore{}
}

// Insert stores a bridge statement.
func (s *BridgeStore) Insert(_ context.Context, bridge *domain.BridgeStatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridges = append(s.bridges, *bridge)
	return nil
}

// ListByRun returns the statements produced during a run.
func (s *BridgeStore) ListByRun(_ context.Context, runID string) ([]domain.BridgeStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.BridgeStatement
	for _, b := range s.bridges {
		if b.RunID == runID {
			result = append(result, b)
		}
	}
	return result, nil
}
