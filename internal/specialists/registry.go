// Package specialists dispatches raw documents to the source-aware
// extractor that understands them. Specialists emit untrusted
// extraction candidates; every candidate is validated by the
// Normalization Engine before anything becomes durable.
package specialists

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.SpecialistRegistry = (*Registry)(nil)

// Registry routes documents to specialists by source.
type Registry struct {
	mu       sync.RWMutex
	bySource map[domain.Source]driven.Specialist
}

// NewRegistry creates a registry with the given specialists.
func NewRegistry(specialists ...driven.Specialist) *Registry {
	r := &Registry{bySource: make(map[domain.Source]driven.Specialist)}
	for _, s := range specialists {
		r.Register(s)
	}
	return r
}

// Register adds a specialist, replacing any existing one for the same
// source.
func (r *Registry) Register(specialist driven.Specialist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySource[specialist.Source()] = specialist
}

// Extract dispatches to the specialist registered for the document's
// source.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error) {
	r.mu.RLock()
	specialist, ok := r.bySource[raw.Source]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no specialist for source %q", domain.ErrInvalidInput, raw.Source)
	}
	return specialist.Extract(ctx, raw, runID)
}
