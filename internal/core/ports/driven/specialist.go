package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// Specialist transforms a raw source document into extraction
// candidates. Each specialist is source-aware (knows NVD's nested CVSS
// structure vs. PyPI's flat metadata) but emits the same candidate
// shape. Specialist output is untrusted: the Normalization Engine
// validates every candidate against the archived raw document.
type Specialist interface {
	// Source returns the source this specialist understands.
	Source() domain.Source

	// Extract parses the raw document into zero or more candidates.
	// A parse error means the document itself is unusable; individual
	// malformed entries should still be emitted as candidates so the
	// engine can record their rejection.
	Extract(ctx context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error)
}

// SpecialistRegistry selects the specialist for a source.
type SpecialistRegistry interface {
	// Extract dispatches to the specialist registered for the
	// document's source. Returns domain.ErrInvalidInput for an
	// unknown source.
	Extract(ctx context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error)

	// Register adds a specialist to the registry.
	Register(specialist Specialist)
}
