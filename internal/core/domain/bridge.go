package domain

import "time"

// Confidence grades how strongly a bridge statement is supported.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether the confidence level is known.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// BridgeStatement asserts a causal link between a CVE and a broader
// attack pattern or technique, produced during the augmentation step
// of a correlation run. Many-to-many between CVE items and CAPEC/MITRE
// items, scoped to one run.
type BridgeStatement struct {
	// ID is the surrogate key.
	ID string

	// RunID identifies the correlation run that produced the link.
	RunID string

	// CVEID is the natural key of the vulnerability side.
	CVEID string

	// PatternID is the natural key of the attack-pattern side
	// (CAPEC id or MITRE technique id).
	PatternID string

	// Rationale is free text explaining the causal link.
	Rationale string

	// Confidence grades the assertion.
	Confidence Confidence

	// CreatedAt is when the statement was recorded.
	CreatedAt time.Time
}
