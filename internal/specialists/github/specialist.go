// Package github extracts advisory candidates from GitHub security
// advisory documents.
package github

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
)

// Ensure Specialist implements the interface.
var _ driven.Specialist = (*Specialist)(nil)

// Specialist parses GitHub global security advisory documents as
// archived by the github connector.
type Specialist struct{}

// NewSpecialist creates a GitHub advisories specialist.
func NewSpecialist() *Specialist {
	return &Specialist{}
}

// Source returns the source this specialist understands.
func (s *Specialist) Source() domain.Source {
	return domain.SourceGitHubAdvisory
}

// advisoryDocument mirrors the archived advisory payload.
type advisoryDocument struct {
	Advisories []struct {
		GHSAID      string   `json:"ghsa_id"`
		CVEID       string   `json:"cve_id"`
		Summary     string   `json:"summary"`
		Description string   `json:"description"`
		References  []string `json:"references"`
		CVSS        *struct {
			VectorString string  `json:"vector_string"`
			Score        float64 `json:"score"`
		} `json:"cvss"`
	} `json:"advisories"`
}

// Extract emits one advisory candidate per entry.
func (s *Specialist) Extract(_ context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error) {
	var doc advisoryDocument
	if err := json.Unmarshal(raw.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse github advisory document: %w", err)
	}

	candidates := make([]domain.ExtractionCandidate, 0, len(doc.Advisories))
	for _, adv := range doc.Advisories {
		cand := domain.ExtractionCandidate{
			Source:      domain.SourceGitHubAdvisory,
			ItemType:    domain.ItemAdvisory,
			CandidateID: adv.GHSAID,
			Package:     raw.Package,
			RunID:       runID,
			RawFields: map[string]string{
				services.FieldTitle:       adv.Summary,
				services.FieldDescription: adv.Description,
			},
			References: adv.References,
		}
		if cand.RawFields[services.FieldDescription] == "" {
			cand.RawFields[services.FieldDescription] = adv.Summary
		}
		if adv.CVSS != nil && adv.CVSS.VectorString != "" {
			cand.RawFields[services.FieldCVSSVector] = adv.CVSS.VectorString
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}
