package domain

import (
	"fmt"
	"time"
)

// RawDocument is an archived, source-shaped payload exactly as fetched.
// Its bytes are the provenance reference for fabrication checks: every
// value a specialist emits must be traceable to them.
type RawDocument struct {
	// Source is the feed the document was fetched from.
	Source Source

	// Package is the target package the fetch was issued for. Empty
	// for catalog feeds (MITRE, CAPEC).
	Package string

	// Endpoint is the URL that was requested.
	Endpoint string

	// Content is the raw payload bytes (JSON).
	Content []byte
}

// FetchStatus summarizes the outcome of one fetch attempt.
type FetchStatus string

// Fetch outcomes. PartialFailure means the source responded but the
// payload was incomplete or truncated.
const (
	FetchSuccess        FetchStatus = "success"
	FetchPartialFailure FetchStatus = "partial_failure"
	FetchFailure        FetchStatus = "failure"
)

// FetchError carries the HTTP status of a failed fetch alongside the
// underlying error. errors.Is(err, ErrFetch) holds for every instance.
type FetchError struct {
	// HTTPStatus is the response code, 0 when the request never
	// completed.
	HTTPStatus int

	// Err is the underlying failure.
	Err error
}

func (e *FetchError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("fetch failed (HTTP %d): %v", e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// FetchLog records one (run, source, package) fetch attempt.
type FetchLog struct {
	// ID is the surrogate key.
	ID string

	// RunID identifies the ingestion run.
	RunID string

	// Source is the feed that was fetched.
	Source Source

	// Package is the target package, empty for catalog feeds.
	Package string

	// Endpoint is the URL that was requested.
	Endpoint string

	// Status is the fetch outcome.
	Status FetchStatus

	// HTTPStatus is the response code, 0 when the request never
	// completed.
	HTTPStatus int

	// Error holds the failure text, empty on success.
	Error string

	// ItemCount is the number of items accepted by the Normalization
	// Engine from this fetch. Updated after normalization.
	ItemCount int

	// RawPath is an opaque reference to the archived raw document.
	RawPath string

	// FetchedAt is when the attempt completed.
	FetchedAt time.Time
}
