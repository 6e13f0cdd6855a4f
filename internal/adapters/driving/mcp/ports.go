package mcp

import (
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval serves search_local_cti queries.
	Retrieval driving.RetrievalService

	// Correlation serves report resources. Optional.
	Correlation driving.CorrelationRunner
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Correlation is optional: without it the report resource is absent.
	return nil
}
