package domain

import "fmt"

// Query is the parameterized input to the retrieval tool.
type Query struct {
	// Package is the target package name. Matching is case-insensitive.
	Package string

	// Types restricts results to these item types. Must be non-empty
	// and every member must be a known type.
	Types []ItemType

	// Limit caps the number of results. Zero or negative means the
	// default limit.
	Limit int
}

// DefaultQueryLimit is applied when a query does not set one.
const DefaultQueryLimit = 20

// Validate checks the query against the retrieval tool's contract.
// An unknown item type is an InvalidQuery error; zero results are not.
func (q Query) Validate() error {
	if q.Package == "" {
		return fmt.Errorf("%w: empty package", ErrInvalidQuery)
	}
	if len(q.Types) == 0 {
		return fmt.Errorf("%w: no item types", ErrInvalidQuery)
	}
	for _, t := range q.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown item type %q", ErrInvalidQuery, t)
		}
	}
	return nil
}
