package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// Reasoner is the opaque language-reasoning capability used by the
// correlation state machine. Implementations must validate the shape
// of every model response before returning it: an unparseable or
// malformed response is a domain.ErrReasoning, which the state machine
// retries up to its per-step bound.
//
// The reasoner never touches the knowledge store. It only sees the
// items the state machine hands it, and its selections are filtered
// back against that set, so it cannot inject facts.
type Reasoner interface {
	// SelectRelevant picks which retrieved items actually concern the
	// target package, returning their natural keys. An empty slice is
	// a valid answer (insufficient intelligence).
	SelectRelevant(ctx context.Context, pkg string, items []domain.NormalizedItem) ([]string, error)

	// ProposeBridges links one CVE to the given attack-pattern items,
	// returning bridge statements with rationale and confidence.
	ProposeBridges(ctx context.Context, cve domain.NormalizedItem, patterns []domain.NormalizedItem) ([]domain.BridgeStatement, error)

	// ComposeReport writes the free-text report body from the
	// selected CVEs and bridge statements.
	ComposeReport(ctx context.Context, pkg string, cves []domain.NormalizedItem, bridges []domain.BridgeStatement) (string, error)

	// ModelName returns the name of the underlying model.
	ModelName() string

	// Ping validates the capability is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
