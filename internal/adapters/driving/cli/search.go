package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
	searchTypes []string
)

var searchCmd = &cobra.Command{
	Use:   "search [package]",
	Short: "Search the local knowledge store",
	Long: `Searches the local knowledge store for intelligence concerning a
package. Results are ranked deterministically: exact package matches
first, then text matches, ordered by severity and recency.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultQueryLimit, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", []string{"cve", "advisory"}, "item types to include")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	types := make([]domain.ItemType, 0, len(searchTypes))
	for _, t := range searchTypes {
		types = append(types, domain.ItemType(t))
	}

	query := domain.Query{
		Package: args[0],
		Types:   types,
		Limit:   searchLimit,
	}

	items, err := retrievalService.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, items)
	}

	return outputSearchTable(cmd, items)
}

func outputSearchJSON(cmd *cobra.Command, items []domain.NormalizedItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, items []domain.NormalizedItem) error {
	if len(items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range items {
		severity := "n/a"
		if items[i].Severity != nil {
			severity = fmt.Sprintf("%.1f", *items[i].Severity)
		}

		cmd.Printf("  [%d] %s (%s, severity %s)\n", i+1, items[i].NaturalKey, items[i].Source, severity)
		if items[i].Title != "" && items[i].Title != items[i].NaturalKey {
			cmd.Printf("      %s\n", items[i].Title)
		}
		cmd.Println()
	}

	return nil
}
