// Package nvd fetches CVE records from the NVD REST API 2.0.
package nvd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultTimeout = 30 * time.Second

	// NVD enforces 5 requests per rolling 30 seconds without an API
	// key and 50 with one.
	publicInterval = 30 * time.Second / 5
	keyedInterval  = 30 * time.Second / 50
)

// Fetcher retrieves CVE documents from the NVD keyword search endpoint.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
}

// Config holds configuration for the NVD fetcher.
type Config struct {
	// BaseURL is the CVE API endpoint (default: the NVD 2.0 API).
	BaseURL string

	// APIKey raises the rate limit when present. Optional.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// NewFetcher creates an NVD fetcher. Without an API key the fetcher
// throttles itself to the public rate rather than failing.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	interval := publicInterval
	if cfg.APIKey != "" {
		interval = keyedInterval
	}

	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// Source returns the source this fetcher serves.
func (f *Fetcher) Source() domain.Source {
	return domain.SourceNVD
}

// Capabilities returns what this fetcher supports.
func (f *Fetcher) Capabilities() driven.FetcherCapabilities {
	return driven.FetcherCapabilities{PackageScoped: true, RequiresAuth: true}
}

// Fetch retrieves the CVE records matching a package keyword search.
func (f *Fetcher) Fetch(ctx context.Context, pkg string) (*domain.RawDocument, error) {
	if pkg == "" {
		return nil, fmt.Errorf("%w: empty package name", domain.ErrInvalidInput)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := f.baseURL + "?keywordSearch=" + url.QueryEscape(pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("apiKey", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("nvd request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("nvd returned status %d for %q", resp.StatusCode, pkg),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("read nvd response: %w", err)}
	}

	return &domain.RawDocument{
		Source:   domain.SourceNVD,
		Package:  pkg,
		Endpoint: endpoint,
		Content:  content,
	}, nil
}
