package nvd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
)

const nvdDoc = `{
	"totalResults": 3,
	"vulnerabilities": [
		{
			"cve": {
				"id": "CVE-2021-1234",
				"descriptions": [
					{"lang": "es", "value": "Una vulnerabilidad."},
					{"lang": "en", "value": "A deserialization flaw in flask sessions."}
				],
				"metrics": {
					"cvssMetricV31": [
						{"cvssData": {"vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", "baseScore": 9.8}}
					]
				},
				"references": [
					{"url": "https://example.com/advisory/1234"}
				]
			}
		},
		{
			"cve": {
				"id": "CVE-2009-0001",
				"descriptions": [{"lang": "en", "value": "An old overflow."}],
				"metrics": {
					"cvssMetricV2": [
						{"cvssData": {"vectorString": "AV:N/AC:L/Au:N/C:P/I:P/A:P", "baseScore": 7.5}}
					]
				}
			}
		},
		{
			"cve": {
				"id": "CVE-2022-9999"
			}
		}
	]
}`

func TestSpecialist_Extract(t *testing.T) {
	specialist := NewSpecialist()
	raw := &domain.RawDocument{
		Source:  domain.SourceNVD,
		Package: "flask",
		Content: []byte(nvdDoc),
	}

	candidates, err := specialist.Extract(context.Background(), raw, "run-1")
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	first := candidates[0]
	assert.Equal(t, domain.SourceNVD, first.Source)
	assert.Equal(t, domain.ItemCVE, first.ItemType)
	assert.Equal(t, "CVE-2021-1234", first.CandidateID)
	assert.Equal(t, "flask", first.Package)
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "A deserialization flaw in flask sessions.", first.Field(services.FieldDescription))
	assert.Equal(t, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", first.Field(services.FieldCVSSVector))
	assert.Equal(t, []string{"https://example.com/advisory/1234"}, first.References)

	// v2-only entries carry the numeric score instead of a vector.
	second := candidates[1]
	assert.Empty(t, second.Field(services.FieldCVSSVector))
	assert.InDelta(t, 7.5, second.NumFields[services.NumFieldCVSSScore], 0.001)

	// Malformed entries are still emitted; the engine rejects them.
	third := candidates[2]
	assert.Equal(t, "CVE-2022-9999", third.CandidateID)
	assert.Empty(t, third.Field(services.FieldDescription))
}

func TestSpecialist_Extract_MalformedDocument(t *testing.T) {
	specialist := NewSpecialist()
	raw := &domain.RawDocument{Source: domain.SourceNVD, Content: []byte("not json")}

	_, err := specialist.Extract(context.Background(), raw, "run-1")
	assert.Error(t, err)
}

func TestSpecialist_Extract_EmptyResult(t *testing.T) {
	specialist := NewSpecialist()
	raw := &domain.RawDocument{Source: domain.SourceNVD, Content: []byte(`{"vulnerabilities": []}`)}

	candidates, err := specialist.Extract(context.Background(), raw, "run-1")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
