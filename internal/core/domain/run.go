package domain

import "time"

// RunState names a state of the correlation state machine. The set is
// closed: a run only ever moves forward through it, and Failed is
// reachable from any non-terminal state.
type RunState string

// Correlation run states.
const (
	StateInit           RunState = "init"
	StateScouting       RunState = "scouting"
	StateRetrieved      RunState = "retrieved"
	StateEvaluating     RunState = "evaluating"
	StateAugmenting     RunState = "augmenting"
	StateGuardrailCheck RunState = "guardrail_check"
	StateEmitted        RunState = "emitted"
	StateFailed         RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == StateEmitted || s == StateFailed
}

// ReportedCVE is one relevant vulnerability in a final report.
type ReportedCVE struct {
	// NaturalKey is the CVE identifier.
	NaturalKey string

	// Title is the item title.
	Title string

	// Severity is the normalized score, nil when unknown.
	Severity *float64
}

// Report is the final artifact of one correlation run, handed to the
// presentation layer.
type Report struct {
	// RunID identifies the correlation run.
	RunID string

	// Package is the investigated package.
	Package string

	// State is the terminal state (Emitted or Failed).
	State RunState

	// FailedAt is the step that exhausted its retry bound, empty on
	// success.
	FailedAt string

	// Reason is the human-readable failure or rejection reason, empty
	// on success.
	Reason string

	// LastState is the last successfully completed state before a
	// failure. Equal to State on success.
	LastState RunState

	// CVEs are the vulnerabilities judged relevant at evaluation.
	CVEs []ReportedCVE

	// Bridges are the attack-pattern links produced at augmentation.
	Bridges []BridgeStatement

	// Body is the guardrail-checked report text.
	Body string

	// UnavailableSources lists sources whose latest ingestion failed,
	// so the reader knows the intelligence may be partial.
	UnavailableSources []Source

	// CreatedAt is when the run finished.
	CreatedAt time.Time
}
