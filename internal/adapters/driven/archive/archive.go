// Package archive stores raw fetched documents and run traces on the
// local filesystem under the vigil data directory. Archived bytes are
// the provenance reference for the normalization engine's fabrication
// checks, so they are written verbatim, before any parsing.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure FileArchive implements the interface.
var _ driven.RawArchive = (*FileArchive)(nil)

// catalogDir is the package slot for catalog feeds fetched without a
// target package.
const catalogDir = "catalog"

// FileArchive is a filesystem implementation of driven.RawArchive.
// Documents live at <root>/raw/<run_id>/<package>/<source>.json.
type FileArchive struct {
	root string
}

// NewFileArchive creates an archive rooted at dataDir. If dataDir is
// empty, defaults to ~/.vigil/data.
func NewFileArchive(dataDir string) (*FileArchive, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vigil", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &FileArchive{root: dataDir}, nil
}

// Save writes the raw document and returns its archive-relative path
// and the hex SHA-256 of the content.
func (a *FileArchive) Save(_ context.Context, runID string, raw *domain.RawDocument) (string, string, error) {
	pkg := slug(raw.Package)
	if pkg == "" || strings.Trim(pkg, ".") == "" {
		pkg = catalogDir
	}

	relPath := filepath.Join("raw", slug(runID), pkg, string(raw.Source)+".json")
	absPath := filepath.Join(a.root, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0700); err != nil {
		return "", "", fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.WriteFile(absPath, raw.Content, 0600); err != nil {
		return "", "", fmt.Errorf("writing raw document: %w", err)
	}

	sum := sha256.Sum256(raw.Content)
	return relPath, hex.EncodeToString(sum[:]), nil
}

// Load reads archived bytes by the path Save returned.
func (a *FileArchive) Load(_ context.Context, path string) ([]byte, error) {
	abs := filepath.Join(a.root, filepath.Clean(path))
	if !strings.HasPrefix(abs, a.root+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: path escapes archive root", domain.ErrInvalidInput)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading raw document: %w", err)
	}
	return content, nil
}

// slug maps an arbitrary name onto a filesystem-safe directory name:
// lowercase, with anything outside [a-z0-9._-] collapsed to a dash.
func slug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
