package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Source identifies the upstream intelligence feed an item came from.
type Source string

// Known sources.
const (
	SourceNVD            Source = "nvd"
	SourcePyPI           Source = "pypi"
	SourceGitHubAdvisory Source = "github"
	SourceMITRE          Source = "mitre"
	SourceCAPEC          Source = "capec"
)

// AllSources lists every known source in a stable order.
func AllSources() []Source {
	return []Source{SourceNVD, SourcePyPI, SourceGitHubAdvisory, SourceMITRE, SourceCAPEC}
}

// Valid reports whether the source is one of the known feeds.
func (s Source) Valid() bool {
	switch s {
	case SourceNVD, SourcePyPI, SourceGitHubAdvisory, SourceMITRE, SourceCAPEC:
		return true
	}
	return false
}

// ItemType classifies the kind of intelligence record.
type ItemType string

// Known item types.
const (
	ItemCVE         ItemType = "cve"
	ItemCWE         ItemType = "cwe"
	ItemCAPEC       ItemType = "capec"
	ItemAdvisory    ItemType = "advisory"
	ItemPackageMeta ItemType = "package_meta"
)

// Valid reports whether the item type is known.
func (t ItemType) Valid() bool {
	switch t {
	case ItemCVE, ItemCWE, ItemCAPEC, ItemAdvisory, ItemPackageMeta:
		return true
	}
	return false
}

// Natural key patterns per item type. Candidates whose identifier does
// not match the pattern for their type are schema violations.
var (
	cvePattern   = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
	ghsaPattern  = regexp.MustCompile(`^GHSA(-[23456789cfghjmpqrvwx]{4}){3}$`)
	capecPattern = regexp.MustCompile(`^CAPEC-\d+$`)
	cwePattern   = regexp.MustCompile(`^CWE-\d+$`)
	mitrePattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)
)

// ValidNaturalKey reports whether key matches the identifier pattern
// for the given item type. PackageMeta keys are name@version and are
// validated structurally rather than by pattern.
func ValidNaturalKey(t ItemType, key string) bool {
	switch t {
	case ItemCVE:
		return cvePattern.MatchString(key)
	case ItemAdvisory:
		return ghsaPattern.MatchString(key) || cvePattern.MatchString(key)
	case ItemCAPEC:
		return capecPattern.MatchString(key) || mitrePattern.MatchString(key)
	case ItemCWE:
		return cwePattern.MatchString(key)
	case ItemPackageMeta:
		name, version, ok := strings.Cut(key, "@")
		return ok && name != "" && version != ""
	}
	return false
}

// PackageKey derives the natural key for package metadata.
func PackageKey(name, version string) string {
	return fmt.Sprintf("%s@%s", name, version)
}

// ExtractionCandidate is the unvalidated output of a specialist.
// It conforms to a common shape but carries no guarantees: fields may
// be missing, malformed, or fabricated. Only the Normalization Engine
// decides whether a candidate becomes durable.
type ExtractionCandidate struct {
	// Source is the feed the specialist extracted from.
	Source Source

	// ItemType is the claimed record kind.
	ItemType ItemType

	// CandidateID is the source-native identifier, if the specialist
	// found one. Empty otherwise.
	CandidateID string

	// Package is the target package this candidate was extracted for.
	Package string

	// RunID links the candidate to the ingestion run that produced it.
	RunID string

	// RawFields holds source-specific string fields (title,
	// description, references, version, ...).
	RawFields map[string]string

	// NumFields holds source-specific numeric fields (CVSS scores).
	NumFields map[string]float64

	// References are URLs the specialist claims appear in the source
	// document.
	References []string
}

// Field returns a raw string field, or "" when absent.
func (c *ExtractionCandidate) Field(name string) string {
	if c.RawFields == nil {
		return ""
	}
	return c.RawFields[name]
}

// NormalizedItem is the durable, validated record in the knowledge
// store. It is created by the Normalization Engine and never mutated
// afterwards; re-ingestion with changed content supersedes it with a
// new version under the same natural key.
type NormalizedItem struct {
	// ID is the stable surrogate key.
	ID string

	// Source is the feed the item came from.
	Source Source

	// ItemType classifies the record.
	ItemType ItemType

	// NaturalKey is the source-native identifier used for dedup
	// (CVE id, GHSA id, CAPEC id, name@version).
	NaturalKey string

	// Version is the append-only version number per natural key,
	// starting at 1.
	Version int

	// Title is a short human-readable title.
	Title string

	// Description is the full description text.
	Description string

	// Severity is the normalized 0-10 score, nil when the source
	// provides none. Never fabricated.
	Severity *float64

	// References are the source-verified URLs, in document order.
	References []string

	// RelatedPackage is the package this item concerns, if any.
	RelatedPackage string

	// IngestedAt is when this version was committed.
	IngestedAt time.Time

	// ProvenanceHash is the hex SHA-256 of the raw document this item
	// was extracted from.
	ProvenanceHash string
}

// RejectReason explains why a candidate was not committed.
type RejectReason string

// Rejection reasons. DuplicateNoChange is informational: the candidate
// was valid but identical to the current version.
const (
	RejectSchemaViolation      RejectReason = "schema_violation"
	RejectMissingRequiredField RejectReason = "missing_required_field"
	RejectSuspectedFabrication RejectReason = "suspected_fabrication"
	RejectDuplicateNoChange    RejectReason = "duplicate_no_change"
)

// RejectedItem is the durable audit record for a candidate that was
// not committed. It is never read by the reasoning layer.
type RejectedItem struct {
	// ID is the surrogate key.
	ID string

	// Candidate is a snapshot of the rejected candidate.
	Candidate ExtractionCandidate

	// Reason classifies the rejection.
	Reason RejectReason

	// Detail is a human-readable explanation.
	Detail string

	// RejectedAt is when the rejection was recorded.
	RejectedAt time.Time
}
