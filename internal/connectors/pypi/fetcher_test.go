package pypi

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
	const body = `{"info": {"name": "flask", "version": "3.0.2", "summary": "A web framework."}}`

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{BaseURL: server.URL})
	doc, err := fetcher.Fetch(context.Background(), "flask")
	require.NoError(t, err)

	assert.Equal(t, "/pypi/flask/json", gotPath)
	assert.Equal(t, domain.SourcePyPI, doc.Source)
	assert.Equal(t, "flask", doc.Package)
	assert.Equal(t, server.URL+"/pypi/flask/json", doc.Endpoint)
	assert.JSONEq(t, body, string(doc.Content))
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{BaseURL: server.URL})
	_, err := fetcher.Fetch(context.Background(), "no-such-package")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.HTTPStatus)
}

func TestFetcher_Fetch_EmptyPackage(t *testing.T) {
	fetcher := NewFetcher(Config{})
	_, err := fetcher.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetcher_Capabilities(t *testing.T) {
	fetcher := NewFetcher(Config{})
	assert.Equal(t, domain.SourcePyPI, fetcher.Source())
	assert.True(t, fetcher.Capabilities().PackageScoped)
	assert.False(t, fetcher.Capabilities().RequiresAuth)
}
