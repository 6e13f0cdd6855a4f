// Package github fetches security advisories from the GitHub
// advisory database.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// pythonEcosystem is the advisory ecosystem filter for PyPI
	// packages.
	pythonEcosystem = "pip"

	// maxPages bounds cursor pagination per fetch. 100 advisories per
	// page is more than any single package accumulates between runs.
	maxPages = 3
)

// Fetcher retrieves global security advisories affecting a package.
type Fetcher struct {
	mu          sync.Mutex
	gh          *gh.Client
	rateLimiter *RateLimiter
	token       string
	timeout     time.Duration
	baseURL     string
}

// Config holds configuration for the GitHub advisories fetcher.
type Config struct {
	// Token is a GitHub personal access token. Unauthenticated
	// requests work at a much lower rate limit.
	Token string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// BaseURL overrides the API base URL. Used in tests.
	BaseURL string
}

// NewFetcher creates a GitHub advisories fetcher. The underlying
// client is initialized lazily on first use.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		rateLimiter: NewRateLimiter(),
		token:       cfg.Token,
		timeout:     cfg.Timeout,
		baseURL:     cfg.BaseURL,
	}
}

// Source returns the source this fetcher serves.
func (f *Fetcher) Source() domain.Source {
	return domain.SourceGitHubAdvisory
}

// Capabilities returns what this fetcher supports.
func (f *Fetcher) Capabilities() driven.FetcherCapabilities {
	return driven.FetcherCapabilities{PackageScoped: true, RequiresAuth: true}
}

// ensureClient initializes the go-github client if not already done.
func (f *Fetcher) ensureClient(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gh != nil {
		return nil
	}

	var httpClient *http.Client
	if f.token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: f.token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = f.timeout

	client := gh.NewClient(httpClient)
	if f.baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(f.baseURL, f.baseURL)
		if err != nil {
			return fmt.Errorf("set base URL: %w", err)
		}
	}
	f.gh = client
	return nil
}

// Fetch retrieves the advisories affecting a PyPI package. The typed
// API response is re-serialized to JSON so the archived document
// carries every field the specialist extracts.
func (f *Fetcher) Fetch(ctx context.Context, pkg string) (*domain.RawDocument, error) {
	if pkg == "" {
		return nil, fmt.Errorf("%w: empty package name", domain.ErrInvalidInput)
	}
	if err := f.ensureClient(ctx); err != nil {
		return nil, err
	}

	opts := &gh.ListGlobalSecurityAdvisoriesOptions{
		Ecosystem: gh.Ptr(pythonEcosystem),
		Affects:   gh.Ptr(pkg),
	}

	var all []*gh.GlobalSecurityAdvisory
	for page := 0; page < maxPages; page++ {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		advisories, resp, err := f.gh.SecurityAdvisories.ListGlobalSecurityAdvisories(ctx, opts)
		f.rateLimiter.UpdateFromResponse(resp)
		if err != nil {
			return nil, wrapError(err, pkg)
		}

		all = append(all, advisories...)
		if resp == nil || resp.After == "" {
			break
		}
		opts.After = resp.After
	}

	content, err := json.Marshal(map[string]any{"advisories": all})
	if err != nil {
		return nil, fmt.Errorf("encode advisories: %w", err)
	}

	return &domain.RawDocument{
		Source:   domain.SourceGitHubAdvisory,
		Package:  pkg,
		Endpoint: "https://api.github.com/advisories?ecosystem=" + pythonEcosystem + "&affects=" + pkg,
		Content:  content,
	}, nil
}

// wrapError converts go-github errors to fetch errors carrying the
// HTTP status.
func wrapError(err error, pkg string) error {
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &domain.FetchError{
			HTTPStatus: http.StatusForbidden,
			Err: fmt.Errorf("%w: github quota resets %s",
				domain.ErrRateLimited, rateLimitErr.Rate.Reset.Time.Format(time.RFC3339)),
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &domain.FetchError{
			HTTPStatus: ghErr.Response.StatusCode,
			Err:        fmt.Errorf("github advisories for %q: %s", pkg, ghErr.Message),
		}
	}

	return &domain.FetchError{Err: fmt.Errorf("github advisories for %q: %w", pkg, err)}
}
