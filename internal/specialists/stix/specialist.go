// Package stix extracts attack-pattern candidates from archived STIX
// catalog batches. MITRE ATT&CK and CAPEC share the STIX object shape
// and differ only in which external reference carries the identifier.
package stix

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

// Specialist parses one STIX catalog's attack patterns.
type Specialist struct {
	source domain.Source

	// refSourceName is the external_references source_name carrying
	// the catalog identifier ("mitre-attack" or "capec").
	refSourceName string
}

// NewSpecialist creates a STIX specialist for one catalog.
func NewSpecialist(source domain.Source, refSourceName string) *Specialist {
	return &Specialist{source: source, refSourceName: refSourceName}
}

// Source returns the source this specialist understands.
func (s *Specialist) Source() domain.Source {
	return s.source
}

// stixObject mirrors the slice of a STIX attack-pattern we extract
// from.
type stixObject struct {
	Type               string `json:"type"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	ExternalReferences []struct {
		SourceName string `json:"source_name"`
		ExternalID string `json:"external_id"`
		URL        string `json:"url"`
	} `json:"external_references"`
}

// Extract emits one attack-pattern candidate per STIX object.
func (s *Specialist) Extract(_ context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error) {
	var doc struct {
		Objects []stixObject `json:"objects"`
	}
	if err := json.Unmarshal(raw.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s document: %w", s.source, err)
	}

	candidates := make([]domain.ExtractionCandidate, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		if obj.Type != "attack-pattern" {
			continue
		}

		cand := domain.ExtractionCandidate{
			Source:   s.source,
			ItemType: domain.ItemCAPEC,
			Package:  raw.Package,
			RunID:    runID,
			RawFields: map[string]string{
				services.FieldTitle:       obj.Name,
				services.FieldDescription: obj.Description,
			},
		}

		for _, ref := range obj.ExternalReferences {
			if ref.SourceName == s.refSourceName && ref.ExternalID != "" {
				cand.CandidateID = ref.ExternalID
			}
			if ref.URL != "" {
				cand.References = append(cand.References, ref.URL)
			}
		}

		candidates = append(candidates, cand)
	}

	return candidates, nil
}
