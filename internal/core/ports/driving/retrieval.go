package driving

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// RetrievalService is the deterministic query surface over the
// knowledge store, exposed to the reasoning loop and to external
// callers as the search_local_cti tool.
type RetrievalService interface {
	// Search returns the current item versions matching the query, in
	// deterministic rank order. Zero results is a valid outcome, not
	// an error.
	Search(ctx context.Context, q domain.Query) ([]domain.NormalizedItem, error)
}
