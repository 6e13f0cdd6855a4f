// Package pypi fetches package metadata from the PyPI JSON API.
package pypi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://pypi.org"
	DefaultTimeout = 30 * time.Second
)

// Fetcher retrieves package metadata documents from PyPI.
type Fetcher struct {
	client  *http.Client
	baseURL string
}

// Config holds configuration for the PyPI fetcher.
type Config struct {
	// BaseURL is the PyPI API base URL (default: https://pypi.org).
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// NewFetcher creates a PyPI fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}
}

// Source returns the source this fetcher serves.
func (f *Fetcher) Source() domain.Source {
	return domain.SourcePyPI
}

// Capabilities returns what this fetcher supports.
func (f *Fetcher) Capabilities() driven.FetcherCapabilities {
	return driven.FetcherCapabilities{PackageScoped: true}
}

// Fetch retrieves the JSON metadata document for a package.
func (f *Fetcher) Fetch(ctx context.Context, pkg string) (*domain.RawDocument, error) {
	if pkg == "" {
		return nil, fmt.Errorf("%w: empty package name", domain.ErrInvalidInput)
	}

	endpoint := f.baseURL + "/pypi/" + url.PathEscape(pkg) + "/json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("pypi request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("pypi returned status %d for %q", resp.StatusCode, pkg),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("read pypi response: %w", err)}
	}

	return &domain.RawDocument{
		Source:   domain.SourcePyPI,
		Package:  pkg,
		Endpoint: endpoint,
		Content:  content,
	}, nil
}
