package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// RawArchive stores fetched payloads verbatim. The archive is the
// provenance reference: fabrication checks compare candidate fields
// against the archived bytes, and the fetch log's raw_path points here.
type RawArchive interface {
	// Save archives a raw document under the given run and returns
	// the opaque path and the hex SHA-256 of the content.
	Save(ctx context.Context, runID string, raw *domain.RawDocument) (path string, hash string, err error)

	// Load reads archived bytes by path.
	Load(ctx context.Context, path string) ([]byte, error)
}
