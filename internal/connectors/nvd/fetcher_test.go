package nvd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

func TestFetcher_Fetch(t *testing.T) {
	const body = `{"totalResults": 1, "vulnerabilities": [{"cve": {"id": "CVE-2021-1234"}}]}`

	var gotQuery, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("keywordSearch")
		gotAPIKey = r.Header.Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{BaseURL: server.URL, APIKey: "test-key"})
	doc, err := fetcher.Fetch(context.Background(), "flask")
	require.NoError(t, err)

	assert.Equal(t, "flask", gotQuery)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, domain.SourceNVD, doc.Source)
	assert.Equal(t, "flask", doc.Package)
	assert.JSONEq(t, body, string(doc.Content))
}

func TestFetcher_Fetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{BaseURL: server.URL})
	_, err := fetcher.Fetch(context.Background(), "flask")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.HTTPStatus)
}

func TestFetcher_Fetch_EmptyPackage(t *testing.T) {
	fetcher := NewFetcher(Config{})
	_, err := fetcher.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetcher_Fetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(Config{BaseURL: server.URL})
	_, err := fetcher.Fetch(ctx, "flask")
	assert.Error(t, err)
}

func TestFetcher_Capabilities(t *testing.T) {
	fetcher := NewFetcher(Config{})
	assert.Equal(t, domain.SourceNVD, fetcher.Source())
	assert.True(t, fetcher.Capabilities().PackageScoped)
	assert.True(t, fetcher.Capabilities().RequiresAuth)
}
