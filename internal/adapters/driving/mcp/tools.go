package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// SearchInput is the input schema for the search_local_cti tool.
type SearchInput struct {
	Package string   `json:"package" jsonschema:"the target package name to search intelligence for"`
	Types   []string `json:"types,omitempty" jsonschema:"item types to include: cve, advisory, capec, package_meta (default: cve, advisory)"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 20)"`
}

// SearchOutput is the output schema for the search_local_cti tool.
type SearchOutput struct {
	Items []SearchItemOutput `json:"items"`
	Count int                `json:"count"`
}

// SearchItemOutput represents a single retrieved item.
type SearchItemOutput struct {
	NaturalKey     string   `json:"natural_key"`
	Source         string   `json:"source"`
	ItemType       string   `json:"item_type"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Severity       *float64 `json:"severity,omitempty"`
	References     []string `json:"references,omitempty"`
	RelatedPackage string   `json:"related_package,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_local_cti",
		Description: "Search the local threat-intelligence store for items concerning a package",
	}, s.handleSearch)
}

// handleSearch handles the search_local_cti tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	types := make([]domain.ItemType, 0, len(input.Types))
	for _, t := range input.Types {
		types = append(types, domain.ItemType(t))
	}
	if len(types) == 0 {
		types = []domain.ItemType{domain.ItemCVE, domain.ItemAdvisory}
	}

	query := domain.Query{
		Package: input.Package,
		Types:   types,
		Limit:   input.Limit,
	}

	items, err := s.ports.Retrieval.Search(ctx, query)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search_local_cti: %w", err)
	}

	output := SearchOutput{
		Items: make([]SearchItemOutput, len(items)),
		Count: len(items),
	}

	for i := range items {
		output.Items[i] = SearchItemOutput{
			NaturalKey:     items[i].NaturalKey,
			Source:         string(items[i].Source),
			ItemType:       string(items[i].ItemType),
			Title:          items[i].Title,
			Description:    items[i].Description,
			Severity:       items[i].Severity,
			References:     items[i].References,
			RelatedPackage: items[i].RelatedPackage,
		}
	}

	return nil, output, nil
}
