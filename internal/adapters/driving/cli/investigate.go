package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

var investigateJSON bool

var investigateCmd = &cobra.Command{
	Use:   "investigate [package]",
	Short: "Correlate local intelligence into a report",
	Long: `Runs the bounded reasoning loop for a package: retrieves local
intelligence, selects the relevant vulnerabilities, links them to
attack patterns and composes a guardrail-checked report.

Requires a running Ollama instance and a prior ingest for useful
results.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().BoolVar(&investigateJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(investigateCmd)
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	if correlationRunner == nil {
		return errors.New("correlation runner not configured")
	}

	report, runErr := correlationRunner.Run(cmd.Context(), args[0])
	if report == nil {
		return runErr
	}

	if investigateJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return runErr
	}

	outputReportText(cmd, report)
	return runErr
}

func outputReportText(cmd *cobra.Command, report *domain.Report) {
	cmd.Printf("Report for %s (run %s)\n", report.Package, report.RunID)
	cmd.Printf("State: %s\n", report.State)

	if report.State == domain.StateFailed {
		cmd.Printf("Failed at: %s\n", report.FailedAt)
		cmd.Printf("Reason: %s\n", report.Reason)
		return
	}

	if len(report.UnavailableSources) > 0 {
		cmd.Printf("Warning: latest ingestion failed for sources: %v\n", report.UnavailableSources)
	}

	if len(report.CVEs) > 0 {
		cmd.Println()
		cmd.Println("Relevant vulnerabilities:")
		for _, cve := range report.CVEs {
			severity := "n/a"
			if cve.Severity != nil {
				severity = fmt.Sprintf("%.1f", *cve.Severity)
			}
			cmd.Printf("  - %s (severity %s)\n", cve.NaturalKey, severity)
		}
	}

	if len(report.Bridges) > 0 {
		cmd.Println()
		cmd.Println("Attack-pattern links:")
		for _, bridge := range report.Bridges {
			cmd.Printf("  - %s -> %s (%s): %s\n",
				bridge.CVEID, bridge.PatternID, bridge.Confidence, bridge.Rationale)
		}
	}

	cmd.Println()
	cmd.Println(report.Body)
}
