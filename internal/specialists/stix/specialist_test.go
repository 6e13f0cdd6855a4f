package stix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/services"
)

const capecDoc = `{
	"objects": [
		{
			"type": "attack-pattern",
			"name": "Code Injection",
			"description": "An adversary exploits a weakness in input validation.",
			"external_references": [
				{"source_name": "capec", "external_id": "CAPEC-242", "url": "https://capec.mitre.org/data/definitions/242.html"},
				{"source_name": "cwe", "external_id": "CWE-94"}
			]
		},
		{
			"type": "identity",
			"name": "The MITRE Corporation"
		},
		{
			"type": "attack-pattern",
			"name": "Pattern without identifier"
		}
	]
}`

const mitreDoc = `{
	"objects": [
		{
			"type": "attack-pattern",
			"name": "Command and Scripting Interpreter",
			"description": "Adversaries may abuse command and script interpreters.",
			"external_references": [
				{"source_name": "mitre-attack", "external_id": "T1059", "url": "https://attack.mitre.org/techniques/T1059"}
			]
		}
	]
}`

func TestSpecialist_Extract_CAPEC(t *testing.T) {
	specialist := NewSpecialist(domain.SourceCAPEC, "capec")
	raw := &domain.RawDocument{Source: domain.SourceCAPEC, Content: []byte(capecDoc)}

	candidates, err := specialist.Extract(context.Background(), raw, "run-1")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, domain.ItemCAPEC, first.ItemType)
	assert.Equal(t, "CAPEC-242", first.CandidateID)
	assert.Equal(t, "Code Injection", first.Field(services.FieldTitle))
	assert.Equal(t, []string{"https://capec.mitre.org/data/definitions/242.html"}, first.References)

	// No identifier; emitted for the engine to reject.
	assert.Empty(t, candidates[1].CandidateID)
}

func TestSpecialist_Extract_MITRE(t *testing.T) {
	specialist := NewSpecialist(domain.SourceMITRE, "mitre-attack")
	raw := &domain.RawDocument{Source: domain.SourceMITRE, Content: []byte(mitreDoc)}

	candidates, err := specialist.Extract(context.Background(), raw, "run-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "T1059", candidates[0].CandidateID)
	assert.Equal(t, domain.SourceMITRE, candidates[0].Source)
}

func TestSpecialist_Extract_MalformedDocument(t *testing.T) {
	specialist := NewSpecialist(domain.SourceCAPEC, "capec")
	raw := &domain.RawDocument{Source: domain.SourceCAPEC, Content: []byte("[]")}

	_, err := specialist.Extract(context.Background(), raw, "run-1")
	assert.Error(t, err)
}
