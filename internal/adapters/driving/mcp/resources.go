package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for vigil resources.
	uriScheme = "vigil://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Template for correlation reports per package.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "reports/{package}",
		Name:        "package-report",
		Description: "Correlation report for a package, produced by the reasoning loop",
		MIMEType:    "text/plain",
	}, s.handleReportResource)
}

// handleReportResource runs a correlation for the requested package and
// returns the report body.
func (s *Server) handleReportResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Correlation == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	pkg := extractPackage(req.Params.URI)
	if pkg == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Correlation.Run(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("correlation for %q: %w", pkg, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     report.Body,
		}},
	}, nil
}

// extractPackage extracts the package from a URI like vigil://reports/{package}.
func extractPackage(uri string) string {
	const prefix = uriScheme + "reports/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
