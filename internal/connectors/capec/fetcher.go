// Package capec fetches attack patterns from the CAPEC STIX feed.
package capec

import (
	"time"

	"github.com/custodia-labs/vigil-cli/internal/connectors/catalog"
	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// DefaultFeedURL is the CAPEC STIX bundle.
const DefaultFeedURL = "https://raw.githubusercontent.com/mitre/cti/master/capec/2.1/stix-capec.json"

// Config holds configuration for the CAPEC fetcher.
type Config struct {
	// FeedURL overrides the catalog URL. Used in tests.
	FeedURL string

	// OffsetKey is the config-store key holding the paging offset.
	OffsetKey string

	// BatchSize is the number of patterns per run (default 5).
	BatchSize int

	// ConfigStore persists the offset across runs.
	ConfigStore driven.ConfigStore

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// NewFetcher creates a CAPEC catalog fetcher.
func NewFetcher(cfg Config) driven.Fetcher {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	return catalog.NewFetcher(catalog.Config{
		Source:      domain.SourceCAPEC,
		FeedURL:     cfg.FeedURL,
		OffsetKey:   cfg.OffsetKey,
		BatchSize:   cfg.BatchSize,
		ConfigStore: cfg.ConfigStore,
		Timeout:     cfg.Timeout,
	})
}
