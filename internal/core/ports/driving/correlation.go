package driving

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// CorrelationRunner drives the bounded reasoning loop for one target
// package and produces the final report.
type CorrelationRunner interface {
	// Run executes one correlation run. It always returns a report:
	// on failure the report carries State Failed, the failing step
	// and the last completed state. The error mirrors the report's
	// failure for callers that branch on it.
	Run(ctx context.Context, pkg string) (*domain.Report, error)
}
