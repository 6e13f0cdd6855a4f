package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

func TestInvestigateCmd_Use(t *testing.T) {
	assert.Equal(t, "investigate [package]", investigateCmd.Use)
}

func TestInvestigateCmd_PrintsReport(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	severity := 9.8
	correlationRunner = &mockCorrelationRunner{
		report: &domain.Report{
			RunID:   "run-2",
			Package: "flask",
			State:   domain.StateEmitted,
			CVEs: []domain.ReportedCVE{
				{NaturalKey: "CVE-2021-1234", Severity: &severity},
			},
			Bridges: []domain.BridgeStatement{
				{
					CVEID:      "CVE-2021-1234",
					PatternID:  "CAPEC-242",
					Rationale:  "deserialization enables code injection",
					Confidence: domain.ConfidenceHigh,
				},
			},
			Body:               "flask has one relevant vulnerability.",
			UnavailableSources: []domain.Source{domain.SourceNVD},
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"investigate", "flask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "State: emitted")
	assert.Contains(t, out, "CVE-2021-1234 (severity 9.8)")
	assert.Contains(t, out, "CVE-2021-1234 -> CAPEC-242 (high)")
	assert.Contains(t, out, "flask has one relevant vulnerability.")
	assert.Contains(t, out, "latest ingestion failed")
}

func TestInvestigateCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"investigate", "--json", "flask"})
	defer func() {
		rootCmd.SetArgs(nil)
		investigateJSON = false // Reset flag
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"Package\": \"flask\"")
	assert.Contains(t, buf.String(), "\"State\": \"emitted\"")
}

func TestInvestigateCmd_FailedRunStillPrinted(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	correlationRunner = &mockCorrelationRunner{
		report: &domain.Report{
			RunID:     "run-3",
			Package:   "flask",
			State:     domain.StateFailed,
			FailedAt:  "select_relevant",
			Reason:    "step select_relevant exhausted 3 attempts",
			LastState: domain.StateEvaluating,
		},
		err: domain.ErrReasoning,
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"investigate", "flask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReasoning)
	assert.Contains(t, buf.String(), "Failed at: select_relevant")
}

func TestInvestigateCmd_ServiceNotConfigured(t *testing.T) {
	oldService := correlationRunner
	correlationRunner = nil
	defer func() {
		correlationRunner = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"investigate", "flask"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
