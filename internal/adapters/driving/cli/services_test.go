package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
)

// --- Mock implementations ---

type mockRetrievalService struct {
	items     []domain.NormalizedItem
	lastQuery domain.Query
	err       error
}

func (m *mockRetrievalService) Search(_ context.Context, q domain.Query) ([]domain.NormalizedItem, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

type mockIngestOrchestrator struct {
	runID    string
	status   *driving.IngestStatus
	lastPkgs []string
	err      error
}

func (m *mockIngestOrchestrator) Ingest(_ context.Context, packages []string) (string, error) {
	m.lastPkgs = packages
	if m.err != nil {
		return "", m.err
	}
	return m.runID, nil
}

func (m *mockIngestOrchestrator) Status(_ context.Context, runID string) (*driving.IngestStatus, error) {
	if m.status == nil {
		return nil, domain.ErrNotFound
	}
	return m.status, nil
}

type mockCorrelationRunner struct {
	report  *domain.Report
	lastPkg string
	err     error
}

func (m *mockCorrelationRunner) Run(_ context.Context, pkg string) (*domain.Report, error) {
	m.lastPkg = pkg
	if m.err != nil && m.report == nil {
		return nil, m.err
	}
	return m.report, m.err
}

var errMockService = errors.New("mock service failure")

// setupTestServices installs mock services and returns a cleanup
// function restoring the previous ones.
func setupTestServices() func() {
	severity := 9.8
	oldRetrieval := retrievalService
	oldIngest := ingestOrchestrator
	oldCorrelation := correlationRunner

	retrievalService = &mockRetrievalService{
		items: []domain.NormalizedItem{
			{
				NaturalKey:     "CVE-2021-1234",
				Source:         domain.SourceNVD,
				ItemType:       domain.ItemCVE,
				Title:          "Flask session deserialization flaw",
				Severity:       &severity,
				RelatedPackage: "flask",
			},
		},
	}
	ingestOrchestrator = &mockIngestOrchestrator{
		runID:  "run-1",
		status: &driving.IngestStatus{RunID: "run-1", Accepted: 4, Rejected: 1},
	}
	correlationRunner = &mockCorrelationRunner{
		report: &domain.Report{
			RunID:   "run-2",
			Package: "flask",
			State:   domain.StateEmitted,
			Body:    "flask has one relevant vulnerability.",
		},
	}

	return func() {
		retrievalService = oldRetrieval
		ingestOrchestrator = oldIngest
		correlationRunner = oldCorrelation
	}
}
