package mcp

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
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

type mockCorrelationRunner struct {
	report  *domain.Report
	lastPkg string
	err     error
}

func (m *mockCorrelationRunner) Run(_ context.Context, pkg string) (*domain.Report, error) {
	m.lastPkg = pkg
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}
