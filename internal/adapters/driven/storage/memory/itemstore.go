package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore is an in-memory implementation of driven.ItemStore.
// Append-only, like the SQLite store: versions are never mutated.
type ItemStore struct {
	mu sync.RWMutex
	// versions holds every version per (source, natural_key), in
	// insertion order.
	versions map[string][]domain.NormalizedItem
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{versions: make(map[string][]domain.NormalizedItem)}
}

func itemKey(source domain.Source, naturalKey string) string {
	return string(source) + "|" + naturalKey
}

// Insert stores a new item version, enforcing version uniqueness.
func (s *ItemStore) Insert(_ context.Context, item *domain.NormalizedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey(item.Source, item.NaturalKey)
	for _, v := range s.versions[key] {
		if v.Version == item.Version {
			return fmt.Errorf("%w: %s version %d already exists", domain.ErrInvalidInput, key, item.Version)
		}
	}
	s.versions[key] = append(s.versions[key], *item)
	return nil
}

// Current retrieves the most recent version for a natural key.
func (s *ItemStore) Current(_ context.Context, source domain.Source, naturalKey string) (*domain.NormalizedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[itemKey(source, naturalKey)]
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	current := versions[0]
	for _, v := range versions[1:] {
		if v.Version > current.Version {
			current = v
		}
	}
	return &current, nil
}

// FindCandidates returns current versions loosely matching the package
// query. Matching here mirrors the SQLite LIKE filter: substring,
// case-insensitive. Strict token semantics and ranking belong to the
// retrieval service.
func (s *ItemStore) FindCandidates(_ context.Context, pkg string, types []domain.ItemType) ([]domain.NormalizedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wantType := make(map[domain.ItemType]bool, len(types))
	for _, t := range types {
		wantType[t] = true
	}

	needle := strings.ToLower(pkg)
	var result []domain.NormalizedItem
	for key := range s.versions {
		versions := s.versions[key]
		current := versions[0]
		for _, v := range versions[1:] {
			if v.Version > current.Version {
				current = v
			}
		}
		if len(wantType) > 0 && !wantType[current.ItemType] {
			continue
		}
		if strings.EqualFold(current.RelatedPackage, pkg) ||
			strings.EqualFold(current.NaturalKey, pkg) ||
			strings.Contains(strings.ToLower(current.Title), needle) ||
			strings.Contains(strings.ToLower(current.Description), needle) {
			result = append(result, current)
		}
	}
	return result, nil
}

// CountBySource returns the number of distinct natural keys per source.
func (s *ItemStore) CountBySource(_ context.Context) (map[domain.Source]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.Source]int)
	for _, versions := range s.versions {
		counts[versions[0].Source]++
	}
	return counts, nil
}
