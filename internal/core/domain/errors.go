package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates a retrieval query violates the tool
	// contract (unknown item type, empty package). Not retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrFetch indicates a source fetcher failed. Recorded in the
	// fetch log; does not halt other sources.
	ErrFetch = errors.New("fetch failed")

	// ErrReasoning indicates the reasoning capability returned an
	// error or an unparseable structured response. Retried up to the
	// per-step bound, then fatal to the run.
	ErrReasoning = errors.New("reasoning failed")

	// ErrGuardrailReject indicates the guardrail policy rejected a
	// report outright. Fatal to the run, never silently dropped.
	ErrGuardrailReject = errors.New("guardrail rejected report")

	// ErrRunCancelled indicates a correlation run was cancelled at a
	// state boundary.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrRateLimited indicates a source API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
