package driven

import (
	"context"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
)

// ItemStore persists normalized items. Backed by SQLite.
//
// The store is append-only: items are never updated or deleted, and a
// re-ingestion with changed content inserts a new version under the
// same (source, natural_key). Readers never observe a partially
// written item.
type ItemStore interface {
	// Insert stores a new item version. The item's Version must be
	// Current's version + 1 (or 1 for a first version); the store
	// enforces uniqueness of (source, natural_key, version).
	Insert(ctx context.Context, item *domain.NormalizedItem) error

	// Current retrieves the most recent version for a natural key.
	// Returns domain.ErrNotFound when no version exists.
	Current(ctx context.Context, source domain.Source, naturalKey string) (*domain.NormalizedItem, error)

	// FindCandidates returns the current versions of items matching a
	// package query: related_package equals pkg (case-insensitive) or
	// pkg appears as a token in title/description. Filtered to the
	// given item types. Unranked; ranking is the retrieval service's
	// concern.
	FindCandidates(ctx context.Context, pkg string, types []domain.ItemType) ([]domain.NormalizedItem, error)

	// CountBySource returns the number of current item versions per
	// source, for status display.
	CountBySource(ctx context.Context) (map[domain.Source]int, error)
}

// RejectedStore persists the rejected-candidate audit log.
// Write-only from the engine's perspective; never read by the
// reasoning layer.
type RejectedStore interface {
	// Insert records a rejection.
	Insert(ctx context.Context, rejected *domain.RejectedItem) error

	// ListByRun returns rejections recorded during a run, for audit.
	ListByRun(ctx context.Context, runID string) ([]domain.RejectedItem, error)
}

// FetchLogStore persists fetch attempt records.
type FetchLogStore interface {
	// Record stores a fetch log row.
	Record(ctx context.Context, log *domain.FetchLog) error

	// AddItemCount increments the accepted-item count for a log row.
	AddItemCount(ctx context.Context, id string, delta int) error

	// LatestStatus returns the most recent fetch status per source,
	// used to report which sources were unavailable.
	LatestStatus(ctx context.Context) (map[domain.Source]domain.FetchStatus, error)
}

// BridgeStore persists bridge statements. The correlation state
// machine is its only writer.
type BridgeStore interface {
	// Insert stores a bridge statement.
	Insert(ctx context.Context, bridge *domain.BridgeStatement) error

	// ListByRun returns the statements produced during a run.
	ListByRun(ctx context.Context, runID string) ([]domain.BridgeStatement, error)
}
