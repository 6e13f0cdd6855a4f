package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// fakeOllama serves canned /api/chat responses.
func fakeOllama(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)
			resp := chatResponse{Message: chatMessage{Role: "assistant", Content: content}, Done: true}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
}

func testItems() []domain.NormalizedItem {
	return []domain.NormalizedItem{
		{NaturalKey: "CVE-2021-1234", ItemType: domain.ItemCVE, Description: "Template injection in flask."},
		{NaturalKey: "CVE-2020-0001", ItemType: domain.ItemCVE, Description: "Xen Flask policy bypass."},
	}
}

func TestReasoner_SelectRelevant(t *testing.T) {
	srv := fakeOllama(t, `{"selected": ["CVE-2021-1234"]}`)
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	keys, err := r.SelectRelevant(context.Background(), "flask", testItems())

	require.NoError(t, err)
	assert.Equal(t, []string{"CVE-2021-1234"}, keys)
}

func TestReasoner_SelectRelevant_EmptySelection(t *testing.T) {
	srv := fakeOllama(t, `{"selected": []}`)
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	keys, err := r.SelectRelevant(context.Background(), "flask", testItems())

	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReasoner_SelectRelevant_MalformedResponses(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "the relevant CVE is CVE-2021-1234"},
		{"wrong shape", `{"items": ["CVE-2021-1234"]}`},
		{"selected not a list", `{"selected": "CVE-2021-1234"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeOllama(t, tt.content)
			defer srv.Close()
			r := NewReasoner(Config{BaseURL: srv.URL})

			_, err := r.SelectRelevant(context.Background(), "flask", testItems())

			assert.ErrorIs(t, err, domain.ErrReasoning)
		})
	}
}

func TestReasoner_ProposeBridges(t *testing.T) {
	srv := fakeOllama(t, `{"bridges": [
		{"pattern_id": "CAPEC-242", "rationale": "Template injection enables code injection.", "confidence": "High"}
	]}`)
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	cve := testItems()[0]
	patterns := []domain.NormalizedItem{
		{NaturalKey: "CAPEC-242", ItemType: domain.ItemCAPEC, Title: "Code Injection"},
	}
	bridges, err := r.ProposeBridges(context.Background(), cve, patterns)

	require.NoError(t, err)
	require.Len(t, bridges, 1)
	assert.Equal(t, "CVE-2021-1234", bridges[0].CVEID)
	assert.Equal(t, "CAPEC-242", bridges[0].PatternID)
	// Confidence is normalized to lowercase.
	assert.Equal(t, domain.ConfidenceHigh, bridges[0].Confidence)
}

func TestReasoner_ProposeBridges_MissingField(t *testing.T) {
	srv := fakeOllama(t, `{"links": []}`)
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	_, err := r.ProposeBridges(context.Background(), testItems()[0], nil)

	assert.ErrorIs(t, err, domain.ErrReasoning)
}

func TestReasoner_ComposeReport(t *testing.T) {
	srv := fakeOllama(t, "CVE-2021-1234 allows template injection. Upgrade to 2.0.1.\n")
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	body, err := r.ComposeReport(context.Background(), "flask", testItems(), nil)

	require.NoError(t, err)
	assert.Equal(t, "CVE-2021-1234 allows template injection. Upgrade to 2.0.1.", body)
}

func TestReasoner_ComposeReport_EmptyBody(t *testing.T) {
	srv := fakeOllama(t, "   \n")
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	_, err := r.ComposeReport(context.Background(), "flask", testItems(), nil)

	assert.ErrorIs(t, err, domain.ErrReasoning)
}

func TestReasoner_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	_, err := r.SelectRelevant(context.Background(), "flask", testItems())

	assert.ErrorIs(t, err, domain.ErrReasoning)
}

func TestReasoner_Ping(t *testing.T) {
	srv := fakeOllama(t, "")
	defer srv.Close()
	r := NewReasoner(Config{BaseURL: srv.URL})

	assert.NoError(t, r.Ping(context.Background()))
}

func TestReasoner_Defaults(t *testing.T) {
	r := NewReasoner(Config{})
	assert.Equal(t, DefaultModel, r.ModelName())
}
