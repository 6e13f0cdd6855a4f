package domain

import "time"

// TraceEvent is one entry in a correlation run's evaluation trace. The
// trace records every state entered, every retried step and the final
// outcome, for post-hoc inspection of a run.
type TraceEvent struct {
	// RunID identifies the correlation run.
	RunID string `json:"run_id"`

	// State is the state the run was in when the event occurred.
	State RunState `json:"state"`

	// Step names the operation, e.g. "select_relevant".
	Step string `json:"step,omitempty"`

	// Attempt is the 1-based attempt number for retried steps.
	Attempt int `json:"attempt,omitempty"`

	// Detail carries free-form context, e.g. an error message.
	Detail string `json:"detail,omitempty"`

	// At is when the event occurred.
	At time.Time `json:"at"`
}
