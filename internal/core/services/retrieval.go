package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Ensure Retrieval implements the interface.
var _ driving.RetrievalService = (*Retrieval)(nil)

// Match tiers. Exact matches on the related package or the natural key
// always rank above token matches in title/description.
const (
	tierExactMatch = 0
	tierTokenMatch = 1
)

// Retrieval is the deterministic query surface over the knowledge
// store (the search_local_cti tool). It deliberately permits noisy
// matches - a query for "flask" may return an unrelated "Xen Flask"
// entry - because disambiguation belongs to the evaluation step, not
// the tool.
type Retrieval struct {
	items driven.ItemStore
}

// NewRetrieval creates a retrieval service over the item store.
func NewRetrieval(items driven.ItemStore) *Retrieval {
	return &Retrieval{items: items}
}

// Search returns the current item versions matching the query in
// deterministic rank order: exact package or natural-key match above
// token match, higher severity first within a tier, ties broken by most
// recent ingestion and finally natural key. Identical store state and
// query always yield the identical ordered result.
//
// The query term is usually a package name, but a natural key such as
// "CAPEC-242" or "T1059" resolves catalog items directly; the
// correlation loop relies on this when gathering pattern material.
func (r *Retrieval) Search(ctx context.Context, q domain.Query) ([]domain.NormalizedItem, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}

	logger.Debug("Retrieval query: package=%q types=%v limit=%d", q.Package, q.Types, limit)

	candidates, err := r.items.FindCandidates(ctx, q.Package, q.Types)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	pkg := strings.ToLower(q.Package)
	type ranked struct {
		item domain.NormalizedItem
		tier int
	}

	matches := make([]ranked, 0, len(candidates))
	for _, item := range candidates {
		switch {
		case strings.EqualFold(item.NaturalKey, q.Package),
			item.RelatedPackage != "" && strings.EqualFold(item.RelatedPackage, pkg):
			matches = append(matches, ranked{item, tierExactMatch})
		case hasToken(item.Title, pkg) || hasToken(item.Description, pkg):
			matches = append(matches, ranked{item, tierTokenMatch})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		as, bs := severityRank(a.item.Severity), severityRank(b.item.Severity)
		if as != bs {
			return as > bs
		}
		if !a.item.IngestedAt.Equal(b.item.IngestedAt) {
			return a.item.IngestedAt.After(b.item.IngestedAt)
		}
		return a.item.NaturalKey < b.item.NaturalKey
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]domain.NormalizedItem, len(matches))
	for i := range matches {
		results[i] = matches[i].item
	}

	logger.Debug("Retrieval results: %d", len(results))
	return results, nil
}

// severityRank orders severities descending with nil last.
func severityRank(s *float64) float64 {
	if s == nil {
		return -1
	}
	return *s
}

// hasToken reports whether needle appears as a whole token in text,
// case-insensitively. Tokens are maximal runs of letters and digits.
func hasToken(text, needle string) bool {
	if text == "" || needle == "" {
		return false
	}
	isSep := func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9')
	}
	for _, token := range strings.FieldsFunc(text, isSep) {
		if strings.EqualFold(token, needle) {
			return true
		}
	}
	return false
}
