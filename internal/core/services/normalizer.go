package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Candidate field names the specialists agree on.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldName        = "name"
	FieldVersion     = "version"
	FieldCVSSVector  = "cvss_vector"
)

// NumFieldCVSSScore is the numeric field carrying a CVSS v2 base score.
const NumFieldCVSSScore = "cvss_score"

// Normalizer is the normalization engine. It is the sole writer of
// normalized items: every candidate passes through schema validation,
// the fabrication check against the archived raw document, severity
// normalization and natural-key dedup before it is committed.
type Normalizer struct {
	items    driven.ItemStore
	rejected driven.RejectedStore
	fetchLog driven.FetchLogStore
	locks    *keyMutex

	// Injectable for tests.
	now   func() time.Time
	newID func() string
}

// NewNormalizer creates a normalization engine over the given stores.
// The fetch log store may be nil when item counts are not tracked.
func NewNormalizer(items driven.ItemStore, rejected driven.RejectedStore, fetchLog driven.FetchLogStore) *Normalizer {
	return &Normalizer{
		items:    items,
		rejected: rejected,
		fetchLog: fetchLog,
		locks:    newKeyMutex(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Commit validates a candidate against the archived raw document and
// commits it to the knowledge store. Exactly one of the returned item
// and rejection is non-nil; the error is reserved for store failures.
// The sequence is serialized per (source, natural_key), so concurrent
// candidates for the same key cannot create duplicate first versions.
func (n *Normalizer) Commit(
	ctx context.Context,
	cand domain.ExtractionCandidate,
	raw []byte,
	provenanceHash string,
	fetchLogID string,
) (*domain.NormalizedItem, *domain.RejectedItem, error) {
	item, reason, detail := n.build(cand, raw, provenanceHash)
	if reason != "" {
		rej, err := n.reject(ctx, cand, reason, detail)
		return nil, rej, err
	}

	lockKey := string(item.Source) + "|" + item.NaturalKey
	n.locks.Lock(lockKey)
	defer n.locks.Unlock(lockKey)

	current, err := n.items.Current(ctx, item.Source, item.NaturalKey)
	switch {
	case err == nil:
		if current.ProvenanceHash == provenanceHash {
			rej, rerr := n.reject(ctx, cand, domain.RejectDuplicateNoChange,
				fmt.Sprintf("identical content already committed as version %d", current.Version))
			return nil, rej, rerr
		}
		item.Version = current.Version + 1
	case isNotFound(err):
		item.Version = 1
	default:
		return nil, nil, fmt.Errorf("lookup current version: %w", err)
	}

	if err := n.items.Insert(ctx, item); err != nil {
		return nil, nil, fmt.Errorf("insert item: %w", err)
	}

	if n.fetchLog != nil && fetchLogID != "" {
		if err := n.fetchLog.AddItemCount(ctx, fetchLogID, 1); err != nil {
			return nil, nil, fmt.Errorf("update fetch log count: %w", err)
		}
	}

	logger.Debug("Committed %s/%s v%d", item.Source, item.NaturalKey, item.Version)
	return item, nil, nil
}

// build runs the pure validation steps and assembles the item. A
// non-empty reason means the candidate is rejected before any store
// access.
func (n *Normalizer) build(
	cand domain.ExtractionCandidate,
	raw []byte,
	provenanceHash string,
) (*domain.NormalizedItem, domain.RejectReason, string) {
	if !cand.Source.Valid() {
		return nil, domain.RejectSchemaViolation, fmt.Sprintf("unknown source %q", cand.Source)
	}
	if !cand.ItemType.Valid() {
		return nil, domain.RejectSchemaViolation, fmt.Sprintf("unknown item type %q", cand.ItemType)
	}

	naturalKey, reason, detail := naturalKeyFor(cand)
	if reason != "" {
		return nil, reason, detail
	}

	if reason, detail := requireFields(cand); reason != "" {
		return nil, reason, detail
	}

	// Fabrication check: the natural key and every reference must be
	// traceable to the archived raw document. This is deliberately a
	// containment check, not a second model call, so it stays
	// deterministic.
	doc := string(raw)
	if !strings.Contains(doc, naturalKey) {
		return nil, domain.RejectSuspectedFabrication,
			fmt.Sprintf("natural key %q absent from raw document", naturalKey)
	}
	for _, ref := range cand.References {
		if !strings.Contains(doc, ref) {
			return nil, domain.RejectSuspectedFabrication,
				fmt.Sprintf("reference %q absent from raw document", ref)
		}
	}

	severity, reason, detail := normalizeSeverity(cand, doc)
	if reason != "" {
		return nil, reason, detail
	}

	title := cand.Field(FieldTitle)
	if title == "" {
		title = naturalKey
	}

	return &domain.NormalizedItem{
		ID:             n.newID(),
		Source:         cand.Source,
		ItemType:       cand.ItemType,
		NaturalKey:     naturalKey,
		Title:          title,
		Description:    cand.Field(FieldDescription),
		Severity:       severity,
		References:     cand.References,
		RelatedPackage: strings.ToLower(cand.Package),
		IngestedAt:     n.now().UTC(),
		ProvenanceHash: provenanceHash,
	}, "", ""
}

// reject records a rejection in the audit log and returns it.
func (n *Normalizer) reject(
	ctx context.Context,
	cand domain.ExtractionCandidate,
	reason domain.RejectReason,
	detail string,
) (*domain.RejectedItem, error) {
	rej := &domain.RejectedItem{
		ID:         n.newID(),
		Candidate:  cand,
		Reason:     reason,
		Detail:     detail,
		RejectedAt: n.now().UTC(),
	}
	if err := n.rejected.Insert(ctx, rej); err != nil {
		return nil, fmt.Errorf("record rejection: %w", err)
	}
	logger.Debug("Rejected %s candidate %q: %s (%s)", cand.Source, cand.CandidateID, reason, detail)
	return rej, nil
}

// naturalKeyFor derives and validates the dedup key per item type.
func naturalKeyFor(cand domain.ExtractionCandidate) (string, domain.RejectReason, string) {
	if cand.ItemType == domain.ItemPackageMeta {
		name := cand.Field(FieldName)
		version := cand.Field(FieldVersion)
		if name == "" || version == "" {
			return "", domain.RejectMissingRequiredField, "package metadata requires name and version"
		}
		return domain.PackageKey(name, version), "", ""
	}

	if cand.CandidateID == "" {
		return "", domain.RejectMissingRequiredField,
			fmt.Sprintf("%s candidate has no identifier", cand.ItemType)
	}
	if !domain.ValidNaturalKey(cand.ItemType, cand.CandidateID) {
		return "", domain.RejectSchemaViolation,
			fmt.Sprintf("identifier %q does not match the %s pattern", cand.CandidateID, cand.ItemType)
	}
	return cand.CandidateID, "", ""
}

// requireFields enforces the per-type required fields.
func requireFields(cand domain.ExtractionCandidate) (domain.RejectReason, string) {
	switch cand.ItemType {
	case domain.ItemCVE, domain.ItemAdvisory, domain.ItemCWE:
		if cand.Field(FieldDescription) == "" {
			return domain.RejectMissingRequiredField,
				fmt.Sprintf("%s requires a non-empty description", cand.ItemType)
		}
	case domain.ItemCAPEC:
		if cand.Field(FieldTitle) == "" {
			return domain.RejectMissingRequiredField, "attack pattern requires a name"
		}
	case domain.ItemPackageMeta:
		// Covered by natural key derivation.
	}
	return "", ""
}

// normalizeSeverity maps candidate score fields onto the 0-10 scale.
// CVSS v2 numeric scores pass through; v3.x vectors are parsed to
// their base score; sources without a score yield nil, never a
// fabricated value. Both the vector and a plain score must appear in
// the raw document.
func normalizeSeverity(cand domain.ExtractionCandidate, doc string) (*float64, domain.RejectReason, string) {
	if vector := cand.Field(FieldCVSSVector); vector != "" {
		if !strings.Contains(doc, vector) {
			return nil, domain.RejectSuspectedFabrication,
				fmt.Sprintf("CVSS vector %q absent from raw document", vector)
		}
		score, err := domain.ParseCVSS3Vector(vector)
		if err != nil {
			return nil, domain.RejectSchemaViolation, err.Error()
		}
		return &score, "", ""
	}

	score, ok := cand.NumFields[NumFieldCVSSScore]
	if !ok {
		return nil, "", ""
	}
	if !domain.ValidSeverity(score) {
		return nil, domain.RejectSuspectedFabrication,
			fmt.Sprintf("severity %v outside the 0-10 scale", score)
	}
	if !containsScore(doc, score) {
		return nil, domain.RejectSuspectedFabrication,
			fmt.Sprintf("severity %v absent from raw document", score)
	}
	return &score, "", ""
}

// containsScore checks that a numeric score appears in the document in
// at least one common textual form.
func containsScore(doc string, score float64) bool {
	forms := []string{
		strconv.FormatFloat(score, 'f', -1, 64),
		strconv.FormatFloat(score, 'f', 1, 64),
	}
	for _, f := range forms {
		if strings.Contains(doc, f) {
			return true
		}
	}
	return false
}

// isNotFound reports whether err is the store's missing-row sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
