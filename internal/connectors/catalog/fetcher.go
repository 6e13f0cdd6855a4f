// Package catalog implements paged fetching over STIX catalog feeds.
// MITRE ATT&CK and CAPEC publish their full catalogs as single STIX
// bundles; the fetcher downloads the bundle, extracts the
// attack-pattern objects, and returns one batch per run, advancing a
// persisted offset so successive runs walk the whole catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 5

	// attackPatternType is the STIX object type carrying techniques
	// and attack patterns.
	attackPatternType = "attack-pattern"
)

// Fetcher pages through one STIX catalog feed.
type Fetcher struct {
	client    *http.Client
	source    domain.Source
	feedURL   string
	offsetKey string
	batchSize int
	config    driven.ConfigStore
}

// Config holds configuration for a catalog fetcher.
type Config struct {
	// Source is the feed identity (MITRE or CAPEC).
	Source domain.Source

	// FeedURL is the STIX bundle URL.
	FeedURL string

	// OffsetKey is the config-store key holding the paging offset.
	OffsetKey string

	// BatchSize is the number of attack patterns per run (default 5).
	BatchSize int

	// ConfigStore persists the offset across runs.
	ConfigStore driven.ConfigStore

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// NewFetcher creates a catalog fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		source:    cfg.Source,
		feedURL:   cfg.FeedURL,
		offsetKey: cfg.OffsetKey,
		batchSize: cfg.BatchSize,
		config:    cfg.ConfigStore,
	}
}

// Source returns the source this fetcher serves.
func (f *Fetcher) Source() domain.Source {
	return f.source
}

// Capabilities returns what this fetcher supports. Catalog feeds are
// not package scoped.
func (f *Fetcher) Capabilities() driven.FetcherCapabilities {
	return driven.FetcherCapabilities{}
}

// stixBundle is the envelope shape of the upstream feeds. Objects are
// kept as raw JSON so the archived batch preserves the upstream bytes
// verbatim.
type stixBundle struct {
	Objects []json.RawMessage `json:"objects"`
}

// Fetch downloads the catalog, slices the next batch of attack
// patterns at the persisted offset, and advances the offset. The
// offset wraps to zero past the end of the catalog. pkg is ignored.
func (f *Fetcher) Fetch(ctx context.Context, _ string) (*domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("%s catalog request: %w", f.source, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("%s catalog returned status %d", f.source, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("read %s catalog: %w", f.source, err)}
	}

	var bundle stixBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("decode %s catalog: %w", f.source, err)}
	}

	patterns := filterAttackPatterns(bundle.Objects)
	offset := f.config.GetInt(f.offsetKey)
	if offset < 0 || offset >= len(patterns) {
		offset = 0
	}

	end := offset + f.batchSize
	if end > len(patterns) {
		end = len(patterns)
	}
	batch := patterns[offset:end]

	next := end
	if next >= len(patterns) {
		next = 0
	}
	if err := f.config.Set(f.offsetKey, next); err != nil {
		logger.Warn("Failed to persist %s offset: %v", f.source, err)
	}

	content, err := json.Marshal(map[string]any{"objects": batch})
	if err != nil {
		return nil, fmt.Errorf("encode %s batch: %w", f.source, err)
	}

	logger.Debug("%s catalog: %d patterns, serving [%d:%d)", f.source, len(patterns), offset, end)

	return &domain.RawDocument{
		Source:   f.source,
		Endpoint: f.feedURL,
		Content:  content,
	}, nil
}

// filterAttackPatterns keeps the attack-pattern objects of a bundle,
// preserving feed order.
func filterAttackPatterns(objects []json.RawMessage) []json.RawMessage {
	var patterns []json.RawMessage
	for _, obj := range objects {
		var header struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(obj, &header); err != nil {
			continue
		}
		if header.Type == attackPatternType {
			patterns = append(patterns, obj)
		}
	}
	return patterns
}
