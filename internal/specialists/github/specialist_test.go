package github

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
)

const advisoryDoc = `{
	"advisories": [
		{
			"ghsa_id": "GHSA-2qrg-x229-3v8q",
			"cve_id": "CVE-2023-30861",
			"summary": "Flask vulnerable to possible disclosure of permanent session cookie",
			"description": "When all of the following conditions are met, a response may be cached.",
			"references": ["https://github.com/pallets/flask/security/advisories/GHSA-m2qf-hxjv-5gpq"],
			"cvss": {"vector_string": "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N", "score": 5.9}
		},
		{
			"ghsa_id": "GHSA-562c-5r94-xh97",
			"summary": "Summary only advisory"
		}
	]
}`

func TestSpecialist_Extract(t *testing.T) {
	specialist := NewSpecialist()
	raw := &domain.RawDocument{
		Source:  domain.SourceGitHubAdvisory,
		Package: "flask",
		Content: []byte(advisoryDoc),
	}

	candidates, err := specialist.Extract(context.Background(), raw, "run-1")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, domain.ItemAdvisory, first.ItemType)
	assert.Equal(t, "GHSA-2qrg-x229-3v8q", first.CandidateID)
	assert.Equal(t, "Flask vulnerable to possible disclosure of permanent session cookie", first.Field(services.FieldTitle))
	assert.Contains(t, first.Field(services.FieldDescription), "may be cached")
	assert.Equal(t, "CVSS:3.1/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N", first.Field(services.FieldCVSSVector))
	assert.Len(t, first.References, 1)

	// Description falls back to the summary.
	second := candidates[1]
	assert.Equal(t, "Summary only advisory", second.Field(services.FieldDescription))
	assert.Empty(t, second.Field(services.FieldCVSSVector))
}

func TestSpecialist_Extract_MalformedDocument(t *testing.T) {
	specialist := NewSpecialist()
	raw := &domain.RawDocument{Source: domain.SourceGitHubAdvisory, Content: []byte("{")}

	_, err := specialist.Extract(context.Background(), raw, "run-1")
	assert.Error(t, err)
}
