package driving

import "context"

// IngestOrchestrator coordinates the fetch, extract and normalize
// pipeline across sources and packages.
type IngestOrchestrator interface {
	// Ingest runs the full pipeline for the given packages and
	// returns the run ID. Failures of individual sources degrade to
	// fetch-log entries; Ingest only errors when nothing could run.
	Ingest(ctx context.Context, packages []string) (string, error)

	// Status returns counters for a running or completed ingestion.
	Status(ctx context.Context, runID string) (*IngestStatus, error)
}

// IngestStatus represents the progress of an ingestion run.
type IngestStatus struct {
	// RunID identifies the run.
	RunID string

	// Running indicates the run is still in progress.
	Running bool

	// Accepted is the count of committed normalized items.
	Accepted int

	// Rejected is the count of rejected candidates.
	Rejected int

	// FetchErrors is the number of failed fetch attempts.
	FetchErrors int
}
