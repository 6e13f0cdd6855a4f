package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// TraceSink records correlation run trace events. Backed by a JSONL
// file per run. Trace failures never fail a run; callers log and
// continue.
type TraceSink interface {
	// Append writes one trace event.
	Append(ctx context.Context, event domain.TraceEvent) error
}
