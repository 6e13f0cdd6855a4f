package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/config/file"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [packages...]",
	Short: "Fetch and normalize intelligence for packages",
	Long: `Fetches intelligence for the given packages from every configured
source, extracts candidates and commits the ones that pass validation
into the local knowledge store. Without arguments the configured
default packages are ingested.

Catalog feeds (MITRE ATT&CK, CAPEC) are fetched once per run and paged
across runs.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestOrchestrator == nil {
		return errors.New("ingest orchestrator not configured")
	}

	packages := args
	if len(packages) == 0 {
		packages = file.Packages(configStore)
	}

	cmd.Printf("Ingesting intelligence for %d package(s)...\n", len(packages))

	runID, err := ingestOrchestrator.Ingest(cmd.Context(), packages)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	status, err := ingestOrchestrator.Status(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}

	cmd.Printf("Run %s finished: %d accepted, %d rejected, %d fetch errors\n",
		runID, status.Accepted, status.Rejected, status.FetchErrors)
	return nil
}
