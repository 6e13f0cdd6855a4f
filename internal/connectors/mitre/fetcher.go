// Package mitre fetches ATT&CK techniques from the MITRE STIX feed.
package mitre

import (
	"time"

	"github.com/custodia-labs/vigil-cli/internal/connectors/catalog"
	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// DefaultFeedURL is the enterprise ATT&CK STIX bundle.
const DefaultFeedURL = "https://raw.githubusercontent.com/mitre-attack/attack-stix-data/master/enterprise-attack/enterprise-attack.json"

// Config holds configuration for the MITRE fetcher.
type Config struct {
	// FeedURL overrides the catalog URL. Used in tests.
	FeedURL string

	// OffsetKey is the config-store key holding the paging offset.
	OffsetKey string

	// BatchSize is the number of techniques per run (default 5).
	BatchSize int

	// ConfigStore persists the offset across runs.
	ConfigStore driven.ConfigStore

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// NewFetcher creates a MITRE ATT&CK catalog fetcher.
func NewFetcher(cfg Config) driven.Fetcher {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	return catalog.NewFetcher(catalog.Config{
		Source:      domain.SourceMITRE,
		FeedURL:     cfg.FeedURL,
		OffsetKey:   cfg.OffsetKey,
		BatchSize:   cfg.BatchSize,
		ConfigStore: cfg.ConfigStore,
		Timeout:     cfg.Timeout,
	})
}
