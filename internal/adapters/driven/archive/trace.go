package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure JSONLTrace implements the interface.
var _ driven.TraceSink = (*JSONLTrace)(nil)

// JSONLTrace appends correlation run trace events to one JSON-lines
// file per run, at <root>/runs/<run_id>.jsonl.
type JSONLTrace struct {
	mu   sync.Mutex
	root string
}

// NewJSONLTrace creates a trace sink rooted at dataDir. If dataDir is
// empty, defaults to ~/.vigil/data.
func NewJSONLTrace(dataDir string) (*JSONLTrace, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vigil", "data")
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "runs"), 0700); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}
	return &JSONLTrace{root: dataDir}, nil
}

// Append writes one trace event as a JSON line.
func (t *JSONLTrace) Append(_ context.Context, event domain.TraceEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling trace event: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	path := filepath.Join(t.root, "runs", slug(event.RunID)+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing trace event: %w", err)
	}
	return nil
}
