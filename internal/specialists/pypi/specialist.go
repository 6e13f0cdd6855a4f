// Package pypi extracts package metadata candidates from PyPI JSON
// API responses.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
)

// Ensure Specialist implements the interface.
var _ driven.Specialist = (*Specialist)(nil)

// Specialist parses PyPI package metadata documents.
type Specialist struct{}

// NewSpecialist creates a PyPI specialist.
func NewSpecialist() *Specialist {
	return &Specialist{}
}

// Source returns the source this specialist understands.
func (s *Specialist) Source() domain.Source {
	return domain.SourcePyPI
}

// pypiResponse mirrors the slice of the PyPI JSON API we extract from.
type pypiResponse struct {
	Info struct {
		Name        string            `json:"name"`
		Version     string            `json:"version"`
		Summary     string            `json:"summary"`
		HomePage    string            `json:"home_page"`
		ProjectURLs map[string]string `json:"project_urls"`
	} `json:"info"`
}

// Extract emits one package-metadata candidate per document.
func (s *Specialist) Extract(_ context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error) {
	var resp pypiResponse
	if err := json.Unmarshal(raw.Content, &resp); err != nil {
		return nil, fmt.Errorf("parse pypi document: %w", err)
	}

	cand := domain.ExtractionCandidate{
		Source:      domain.SourcePyPI,
		ItemType:    domain.ItemPackageMeta,
		CandidateID: domain.PackageKey(resp.Info.Name, resp.Info.Version),
		Package:     raw.Package,
		RunID:       runID,
		RawFields: map[string]string{
			services.FieldName:        resp.Info.Name,
			services.FieldVersion:     resp.Info.Version,
			services.FieldTitle:       resp.Info.Name,
			services.FieldDescription: resp.Info.Summary,
		},
	}

	if resp.Info.HomePage != "" {
		cand.References = append(cand.References, resp.Info.HomePage)
	}
	// Sorted key order keeps candidate output deterministic.
	labels := make([]string, 0, len(resp.Info.ProjectURLs))
	for label := range resp.Info.ProjectURLs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if u := resp.Info.ProjectURLs[label]; u != "" && u != resp.Info.HomePage {
			cand.References = append(cand.References, u)
		}
	}

	return []domain.ExtractionCandidate{cand}, nil
}
