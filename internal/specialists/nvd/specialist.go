// Package nvd extracts CVE candidates from NVD API 2.0 responses.
package nvd

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

// Specialist parses NVD keyword-search responses.
type Specialist struct{}

// NewSpecialist creates an NVD specialist.
func NewSpecialist() *Specialist {
	return &Specialist{}
}

// Source returns the source this specialist understands.
func (s *Specialist) Source() domain.Source {
	return domain.SourceNVD
}

// nvdResponse mirrors the slice of the NVD 2.0 schema we extract from.
type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			ID           string           `json:"id"`
			Descriptions []nvdDescription `json:"descriptions"`
			Metrics struct {
				CVSSMetricV31 []cvssMetric `json:"cvssMetricV31"`
				CVSSMetricV30 []cvssMetric `json:"cvssMetricV30"`
				CVSSMetricV2  []cvssMetric `json:"cvssMetricV2"`
			} `json:"metrics"`
			References []struct {
				URL string `json:"url"`
			} `json:"references"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type cvssMetric struct {
	CVSSData struct {
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// Extract emits one CVE candidate per vulnerability. Entries with
// missing fields are emitted anyway so the engine records them.
func (s *Specialist) Extract(_ context.Context, raw *domain.RawDocument, runID string) ([]domain.ExtractionCandidate, error) {
	var resp nvdResponse
	if err := json.Unmarshal(raw.Content, &resp); err != nil {
		return nil, fmt.Errorf("parse nvd document: %w", err)
	}

	candidates := make([]domain.ExtractionCandidate, 0, len(resp.Vulnerabilities))
	for _, vuln := range resp.Vulnerabilities {
		cve := vuln.CVE

		cand := domain.ExtractionCandidate{
			Source:      domain.SourceNVD,
			ItemType:    domain.ItemCVE,
			CandidateID: cve.ID,
			Package:     raw.Package,
			RunID:       runID,
			RawFields: map[string]string{
				services.FieldTitle:       cve.ID,
				services.FieldDescription: englishDescription(cve.Descriptions),
			},
		}

		// Prefer a v3 vector so severity is derived from the canonical
		// formula; fall back to the v2 numeric score.
		switch {
		case len(cve.Metrics.CVSSMetricV31) > 0:
			cand.RawFields[services.FieldCVSSVector] = cve.Metrics.CVSSMetricV31[0].CVSSData.VectorString
		case len(cve.Metrics.CVSSMetricV30) > 0:
			cand.RawFields[services.FieldCVSSVector] = cve.Metrics.CVSSMetricV30[0].CVSSData.VectorString
		case len(cve.Metrics.CVSSMetricV2) > 0:
			cand.NumFields = map[string]float64{
				services.NumFieldCVSSScore: cve.Metrics.CVSSMetricV2[0].CVSSData.BaseScore,
			}
		}

		for _, ref := range cve.References {
			cand.References = append(cand.References, ref.URL)
		}

		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// englishDescription picks the English description, or the first one.
func englishDescription(descriptions []nvdDescription) string {
	for _, d := range descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}
