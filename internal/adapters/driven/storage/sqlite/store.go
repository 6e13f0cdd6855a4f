package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/vigil-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all knowledge store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vigil/data/vigil.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vigil", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vigil.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ItemStore returns an ItemStore interface backed by this store.
func (s *Store) ItemStore() driven.ItemStore {
	return &itemStore{store: s}
}

// RejectedStore returns a RejectedStore interface backed by this store.
func (s *Store) RejectedStore() driven.RejectedStore {
	return &rejectedStore{store: s}
}

// FetchLogStore returns a FetchLogStore interface backed by this store.
func (s *Store) FetchLogStore() driven.FetchLogStore {
	return &fetchLogStore{store: s}
}

// BridgeStore returns a BridgeStore interface backed by this store.
func (s *Store) BridgeStore() driven.BridgeStore {
	return &bridgeStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Item Store ====================

// itemStore implements driven.ItemStore.
type itemStore struct {
	store *Store
}

var _ driven.ItemStore = (*itemStore)(nil)

const itemColumns = `id, source, item_type, natural_key, version, title, description,
	severity, refs, related_package, ingested_at, provenance_hash`

// Insert stores a new item version. The UNIQUE constraint on
// (source, natural_key, version) backs the append-only contract.
func (s *itemStore) Insert(ctx context.Context, item *domain.NormalizedItem) error {
	refsJSON, err := json.Marshal(item.References)
	if err != nil {
		return fmt.Errorf("marshalling references: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO normalized_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Source, item.ItemType, item.NaturalKey, item.Version,
		item.Title, item.Description, nullFloat(item.Severity), string(refsJSON),
		item.RelatedPackage, item.IngestedAt, item.ProvenanceHash)

	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// Current retrieves the most recent version for a natural key.
func (s *itemStore) Current(ctx context.Context, source domain.Source, naturalKey string) (*domain.NormalizedItem, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM normalized_items
		WHERE source = ? AND natural_key = ?
		ORDER BY version DESC
		LIMIT 1
	`, source, naturalKey)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	return item, nil
}

// FindCandidates returns current versions loosely matching the package
// query. The LIKE filter over-returns substring matches; strict token
// semantics and ranking belong to the retrieval service.
func (s *itemStore) FindCandidates(ctx context.Context, pkg string, types []domain.ItemType) ([]domain.NormalizedItem, error) {
	query := `
		SELECT ` + qualify(itemColumns, "n") + `
		FROM normalized_items n
		JOIN (
			SELECT source, natural_key, MAX(version) AS version
			FROM normalized_items
			GROUP BY source, natural_key
		) cur ON n.source = cur.source
			AND n.natural_key = cur.natural_key
			AND n.version = cur.version
		WHERE (
			LOWER(n.related_package) = LOWER(?)
			OR LOWER(n.natural_key) = LOWER(?)
			OR LOWER(n.title) LIKE '%' || LOWER(?) || '%'
			OR LOWER(n.description) LIKE '%' || LOWER(?) || '%'
		)`
	args := []any{pkg, pkg, pkg, pkg}

	if len(types) > 0 {
		query += " AND n.item_type IN (?" + strings.Repeat(", ?", len(types)-1) + ")"
		for _, t := range types {
			args = append(args, t)
		}
	}
	query += " ORDER BY n.natural_key"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var items []domain.NormalizedItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// CountBySource returns distinct natural keys per source.
func (s *itemStore) CountBySource(ctx context.Context) (map[domain.Source]int, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source, COUNT(DISTINCT natural_key)
		FROM normalized_items
		GROUP BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Source]int)
	for rows.Next() {
		var source domain.Source
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}

// scanner abstracts sql.Row and sql.Rows for scanItem.
type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads one normalized item row.
func scanItem(row scanner) (*domain.NormalizedItem, error) {
	var item domain.NormalizedItem
	var severity sql.NullFloat64
	var refsJSON string
	if err := row.Scan(&item.ID, &item.Source, &item.ItemType, &item.NaturalKey,
		&item.Version, &item.Title, &item.Description, &severity, &refsJSON,
		&item.RelatedPackage, &item.IngestedAt, &item.ProvenanceHash); err != nil {
		return nil, err
	}
	if severity.Valid {
		item.Severity = &severity.Float64
	}
	if err := json.Unmarshal([]byte(refsJSON), &item.References); err != nil {
		return nil, fmt.Errorf("unmarshaling references: %w", err)
	}
	return &item, nil
}

// ==================== Rejected Store ====================

// rejectedStore implements driven.RejectedStore.
type rejectedStore struct {
	store *Store
}

var _ driven.RejectedStore = (*rejectedStore)(nil)

// Insert records a rejection. The candidate snapshot is stored as JSON.
func (s *rejectedStore) Insert(ctx context.Context, rejected *domain.RejectedItem) error {
	candidateJSON, err := json.Marshal(rejected.Candidate)
	if err != nil {
		return fmt.Errorf("marshalling candidate: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rejected_items (id, run_id, source, item_type, candidate, reason, detail, rejected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rejected.ID, rejected.Candidate.RunID, rejected.Candidate.Source,
		rejected.Candidate.ItemType, string(candidateJSON), rejected.Reason,
		rejected.Detail, rejected.RejectedAt)

	if err != nil {
		return fmt.Errorf("inserting rejection: %w", err)
	}
	return nil
}

// ListByRun returns rejections recorded during a run.
func (s *rejectedStore) ListByRun(ctx context.Context, runID string) ([]domain.RejectedItem, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, candidate, reason, detail, rejected_at
		FROM rejected_items
		WHERE run_id = ?
		ORDER BY rejected_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying rejections: %w", err)
	}
	defer rows.Close()

	var rejections []domain.RejectedItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rej domain.RejectedItem
		var candidateJSON string
		if err := rows.Scan(&rej.ID, &candidateJSON, &rej.Reason, &rej.Detail, &rej.RejectedAt); err != nil {
			return nil, fmt.Errorf("scanning rejection: %w", err)
		}
		if err := json.Unmarshal([]byte(candidateJSON), &rej.Candidate); err != nil {
			return nil, fmt.Errorf("unmarshaling candidate: %w", err)
		}
		rejections = append(rejections, rej)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rejections: %w", err)
	}
	return rejections, nil
}

// ==================== Fetch Log Store ====================

// fetchLogStore implements driven.FetchLogStore.
type fetchLogStore struct {
	store *Store
}

var _ driven.FetchLogStore = (*fetchLogStore)(nil)

// Record stores a fetch log row.
func (s *fetchLogStore) Record(ctx context.Context, log *domain.FetchLog) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO fetch_log (id, run_id, source, package, endpoint, status,
			http_status, error, item_count, raw_path, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.RunID, log.Source, log.Package, log.Endpoint, log.Status,
		log.HTTPStatus, log.Error, log.ItemCount, log.RawPath, log.FetchedAt)

	if err != nil {
		return fmt.Errorf("inserting fetch log: %w", err)
	}
	return nil
}

// AddItemCount increments the accepted-item count for a log row.
func (s *fetchLogStore) AddItemCount(ctx context.Context, id string, delta int) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE fetch_log SET item_count = item_count + ? WHERE id = ?
	`, delta, id)
	if err != nil {
		return fmt.Errorf("updating item count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: fetch log %q", domain.ErrNotFound, id)
	}
	return nil
}

// LatestStatus returns the most recent fetch status per source.
func (s *fetchLogStore) LatestStatus(ctx context.Context) (map[domain.Source]domain.FetchStatus, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT f.source, f.status
		FROM fetch_log f
		JOIN (
			SELECT source, MAX(fetched_at) AS fetched_at
			FROM fetch_log
			GROUP BY source
		) latest ON f.source = latest.source AND f.fetched_at = latest.fetched_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying latest status: %w", err)
	}
	defer rows.Close()

	statuses := make(map[domain.Source]domain.FetchStatus)
	for rows.Next() {
		var source domain.Source
		var status domain.FetchStatus
		if err := rows.Scan(&source, &status); err != nil {
			return nil, fmt.Errorf("scanning status: %w", err)
		}
		statuses[source] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statuses: %w", err)
	}
	return statuses, nil
}

// ==================== Bridge Store ====================

// bridgeStore implements driven.BridgeStore.
type bridgeStore struct {
	store *Store
}

var _ driven.BridgeStore = (*bridgeStore)(nil)

// Insert stores a bridge statement.
func (s *bridgeStore) Insert(ctx context.Context, bridge *domain.BridgeStatement) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO bridge_statements (id, run_id, cve_id, pattern_id, rationale, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, bridge.ID, bridge.RunID, bridge.CVEID, bridge.PatternID,
		bridge.Rationale, bridge.Confidence, bridge.CreatedAt)

	if err != nil {
		return fmt.Errorf("inserting bridge: %w", err)
	}
	return nil
}

// ListByRun returns the statements produced during a run.
func (s *bridgeStore) ListByRun(ctx context.Context, runID string) ([]domain.BridgeStatement, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, run_id, cve_id, pattern_id, rationale, confidence, created_at
		FROM bridge_statements
		WHERE run_id = ?
		ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying bridges: %w", err)
	}
	defer rows.Close()

	var bridges []domain.BridgeStatement //nolint:prealloc // size unknown from query
	for rows.Next() {
		var b domain.BridgeStatement
		if err := rows.Scan(&b.ID, &b.RunID, &b.CVEID, &b.PatternID,
			&b.Rationale, &b.Confidence, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning bridge: %w", err)
		}
		bridges = append(bridges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bridges: %w", err)
	}
	return bridges, nil
}

// ==================== Helpers ====================

// nullFloat converts an optional severity to its SQL representation.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// qualify prefixes each column in a comma-separated list with a table
// alias.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
