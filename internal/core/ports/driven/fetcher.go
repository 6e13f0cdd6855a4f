package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// Fetcher retrieves raw documents from one intelligence source.
// Each source (NVD, PyPI, GitHub advisories, MITRE, CAPEC) implements
// this interface. Fetchers handle their own rate limiting and
// authentication; the orchestrator only sees documents or errors.
type Fetcher interface {
	// Source returns the source this fetcher serves.
	Source() domain.Source

	// Capabilities returns what this fetcher supports.
	Capabilities() FetcherCapabilities

	// Fetch retrieves the raw document for a package. For catalog
	// sources (PackageScoped false) pkg is ignored and the fetcher
	// returns the next batch of its feed.
	Fetch(ctx context.Context, pkg string) (*domain.RawDocument, error)
}

// FetcherCapabilities describes how a fetcher behaves.
type FetcherCapabilities struct {
	// PackageScoped indicates the source is queried per package.
	// Catalog feeds (MITRE, CAPEC) are fetched once per run instead.
	PackageScoped bool

	// RequiresAuth indicates the source needs a token or API key to
	// fetch at a usable rate. Fetchers degrade rather than fail when
	// the credential is absent.
	RequiresAuth bool
}
