package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Ensure Correlation implements the interface.
var _ driving.CorrelationRunner = (*Correlation)(nil)

// maxStepAttempts bounds the retries of a single tool call or
// reasoning invocation. The reasoning capability is local, so there is
// no backoff between attempts.
const maxStepAttempts = 3

// insufficientIntelligence is the report body emitted when evaluation
// selects zero relevant items.
const insufficientIntelligence = "Insufficient intelligence: no item in the local knowledge store " +
	"could be confirmed as relevant to the target package. Re-run ingestion or widen the sources."

// Correlation is the bounded reasoning loop for one target package:
// scout the knowledge store, evaluate relevance, augment selected
// vulnerabilities with attack-pattern bridges, and pass the composed
// report through the guardrail before emitting it.
//
// One instance is safe for concurrent runs; each Run call is an
// independent sequential flow.
type Correlation struct {
	retrieval driving.RetrievalService
	reasoner  driven.Reasoner
	bridges   driven.BridgeStore
	fetchLog  driven.FetchLogStore
	guardrail *Guardrail
	trace     driven.TraceSink

	now   func() time.Time
	newID func() string
}

// NewCorrelation creates a correlation runner. The trace sink may be
// nil to disable run tracing; the fetch log store may be nil when
// source availability is not reported.
func NewCorrelation(
	retrieval driving.RetrievalService,
	reasoner driven.Reasoner,
	bridges driven.BridgeStore,
	fetchLog driven.FetchLogStore,
	trace driven.TraceSink,
) *Correlation {
	return &Correlation{
		retrieval: retrieval,
		reasoner:  reasoner,
		bridges:   bridges,
		fetchLog:  fetchLog,
		guardrail: NewGuardrail(),
		trace:     trace,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// run carries the mutable state of one correlation run.
type run struct {
	id    string
	pkg   string
	state domain.RunState
}

// Run executes one correlation run for a target package. The returned
// report is never nil: a failed run carries the failing step, the
// reason and the last completed state.
func (c *Correlation) Run(ctx context.Context, pkg string) (*domain.Report, error) {
	r := &run{id: c.newID(), pkg: pkg, state: domain.StateInit}
	logger.Section("Investigating %q (run %s)", pkg, r.id)
	c.record(ctx, r, "", 0, "")

	// Init -> Scouting: one retrieval call with the fixed CVE/Advisory
	// filter.
	if err := c.enter(ctx, r, domain.StateScouting); err != nil {
		return c.fail(ctx, r, "cancel", err)
	}
	var retrieved []domain.NormalizedItem
	err := c.retryStep(ctx, r, "scout_retrieval", func() error {
		var serr error
		retrieved, serr = c.retrieval.Search(ctx, domain.Query{
			Package: pkg,
			Types:   []domain.ItemType{domain.ItemCVE, domain.ItemAdvisory},
		})
		return serr
	})
	if err != nil {
		return c.fail(ctx, r, "scout_retrieval", err)
	}

	// Scouting -> Retrieved: an empty result is valid, not an error.
	if err := c.enter(ctx, r, domain.StateRetrieved); err != nil {
		return c.fail(ctx, r, "cancel", err)
	}
	logger.Info("Retrieved %d candidate items for %q", len(retrieved), pkg)

	// Retrieved -> Evaluating: the reasoner picks the relevant subset.
	// Its answer is filtered back against the retrieved set, so keys it
	// invents are discarded rather than trusted.
	if err := c.enter(ctx, r, domain.StateEvaluating); err != nil {
		return c.fail(ctx, r, "cancel", err)
	}
	var selectedKeys []string
	err = c.retryStep(ctx, r, "select_relevant", func() error {
		var serr error
		selectedKeys, serr = c.reasoner.SelectRelevant(ctx, pkg, retrieved)
		return serr
	})
	if err != nil {
		return c.fail(ctx, r, "select_relevant", err)
	}
	selected := filterByKeys(retrieved, selectedKeys)
	logger.Info("Evaluation selected %d of %d items", len(selected), len(retrieved))

	var bridges []domain.BridgeStatement
	var body string

	if len(selected) == 0 {
		// Nothing relevant: skip augmentation and emit the fixed
		// insufficient-intelligence body.
		body = insufficientIntelligence
	} else {
		// Evaluating -> Augmenting: bounded by the selection fixed
		// above; no dynamic re-expansion.
		if err := c.enter(ctx, r, domain.StateAugmenting); err != nil {
			return c.fail(ctx, r, "cancel", err)
		}
		bridges, err = c.augment(ctx, r, selected)
		if err != nil {
			return c.fail(ctx, r, "augment", err)
		}

		err = c.retryStep(ctx, r, "compose_report", func() error {
			var serr error
			body, serr = c.reasoner.ComposeReport(ctx, pkg, selected, bridges)
			return serr
		})
		if err != nil {
			return c.fail(ctx, r, "compose_report", err)
		}
	}

	// -> GuardrailCheck: deterministic pattern policy on the body.
	if err := c.enter(ctx, r, domain.StateGuardrailCheck); err != nil {
		return c.fail(ctx, r, "cancel", err)
	}
	verdict := c.guardrail.Check(body)
	switch verdict.Action {
	case GuardrailReject:
		return c.fail(ctx, r, "guardrail_check",
			fmt.Errorf("%w: %s", domain.ErrGuardrailReject, verdict.Reason))
	case GuardrailRedact:
		logger.Warn("Report for %q was redacted by the guardrail", pkg)
		body = verdict.Text
	case GuardrailAccept:
		body = verdict.Text
	}

	if err := c.enter(ctx, r, domain.StateEmitted); err != nil {
		return c.fail(ctx, r, "cancel", err)
	}

	report := &domain.Report{
		RunID:              r.id,
		Package:            pkg,
		State:              domain.StateEmitted,
		LastState:          domain.StateEmitted,
		CVEs:               reportedCVEs(selected),
		Bridges:            bridges,
		Body:               body,
		UnavailableSources: c.unavailableSources(ctx),
		CreatedAt:          c.now().UTC(),
	}
	logger.Info("Run %s emitted: %d CVEs, %d bridges", r.id, len(report.CVEs), len(report.Bridges))
	return report, nil
}

// augment links each selected CVE to attack patterns. For every
// CVE-typed item it retrieves pattern material by the CVE's own
// identifiers and vocabulary, asks the reasoner for bridge statements,
// discards statements whose pattern is not in the retrieved set, and
// persists the rest.
func (c *Correlation) augment(
	ctx context.Context,
	r *run,
	selected []domain.NormalizedItem,
) ([]domain.BridgeStatement, error) {
	var all []domain.BridgeStatement
	for _, item := range selected {
		if item.ItemType != domain.ItemCVE {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		patterns, err := c.retrievePatterns(ctx, r, item)
		if err != nil {
			return nil, err
		}
		if len(patterns) == 0 {
			logger.Debug("No pattern material for %s, skipping bridges", item.NaturalKey)
			continue
		}

		var proposed []domain.BridgeStatement
		err = c.retryStep(ctx, r, "propose_bridges", func() error {
			var serr error
			proposed, serr = c.reasoner.ProposeBridges(ctx, item, patterns)
			return serr
		})
		if err != nil {
			return nil, err
		}

		known := make(map[string]bool, len(patterns))
		for _, p := range patterns {
			known[p.NaturalKey] = true
		}
		for _, b := range proposed {
			if !known[b.PatternID] {
				logger.Debug("Discarding bridge to unknown pattern %q", b.PatternID)
				continue
			}
			if b.Rationale == "" || !b.Confidence.Valid() {
				logger.Debug("Discarding malformed bridge %s -> %s", item.NaturalKey, b.PatternID)
				continue
			}
			b.ID = c.newID()
			b.RunID = r.id
			b.CVEID = item.NaturalKey
			b.CreatedAt = c.now().UTC()
			if err := c.bridges.Insert(ctx, &b); err != nil {
				return nil, fmt.Errorf("persist bridge: %w", err)
			}
			all = append(all, b)
		}
	}
	return all, nil
}

// retrievePatterns gathers attack-pattern material for one CVE: one
// retrieval call per term derived from the CVE's text, deduplicated
// across terms. Catalog items carry no package association, so the
// search keys off what the CVE and the patterns actually share.
func (c *Correlation) retrievePatterns(
	ctx context.Context,
	r *run,
	item domain.NormalizedItem,
) ([]domain.NormalizedItem, error) {
	var patterns []domain.NormalizedItem
	seen := make(map[string]bool)
	for _, term := range patternTerms(item) {
		var found []domain.NormalizedItem
		err := c.retryStep(ctx, r, "augment_retrieval", func() error {
			var serr error
			found, serr = c.retrieval.Search(ctx, domain.Query{
				Package: term,
				Types:   []domain.ItemType{domain.ItemCAPEC, domain.ItemAdvisory},
			})
			return serr
		})
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			key := string(p.Source) + "|" + p.NaturalKey
			if seen[key] {
				continue
			}
			seen[key] = true
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

// maxPatternTerms caps the retrieval fan-out per CVE, keeping the
// augmenting loop bounded by the selection size.
const maxPatternTerms = 8

// patternIDRef matches explicit attack-pattern identifiers (CAPEC ids
// and ATT&CK technique ids) in CVE text or reference URLs.
var patternIDRef = regexp.MustCompile(`\b(?:CAPEC-\d+|T\d{4}(?:\.\d{3})?)\b`)

// stopTerms are CVE boilerplate words that carry no weakness signal.
var stopTerms = map[string]bool{
	"allows": true, "attacker": true, "attackers": true, "before": true,
	"certain": true, "could": true, "crafted": true, "earlier": true,
	"issue": true, "related": true, "remote": true, "specially": true,
	"their": true, "there": true, "through": true, "unspecified": true,
	"users": true, "version": true, "versions": true, "vulnerability": true,
	"vulnerable": true, "which": true, "within": true,
}

// patternTerms derives the retrieval terms for one CVE's augmentation:
// explicit CAPEC/technique identifiers from its text and references
// first, then the distinctive vocabulary of its title and description.
func patternTerms(item domain.NormalizedItem) []string {
	text := item.Title + " " + item.Description
	for _, ref := range item.References {
		text += " " + ref
	}

	var terms []string
	seen := make(map[string]bool)
	add := func(term string) {
		term = strings.ToLower(term)
		if term == "" || seen[term] || len(terms) >= maxPatternTerms {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, id := range patternIDRef.FindAllString(text, -1) {
		add(id)
	}

	isSep := func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z')
	}
	for _, token := range strings.FieldsFunc(item.Title+" "+item.Description, isSep) {
		if len(token) < 5 || stopTerms[strings.ToLower(token)] {
			continue
		}
		add(token)
	}
	return terms
}

// retryStep runs one tool call or reasoning invocation with the fixed
// attempt bound. Invalid queries and cancellation are not retried.
func (c *Correlation) retryStep(ctx context.Context, r *run, step string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxStepAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrRunCancelled, err)
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrInvalidQuery) || ctx.Err() != nil {
			return lastErr
		}
		logger.Warn("Step %s attempt %d/%d failed: %v", step, attempt, maxStepAttempts, lastErr)
		c.record(ctx, r, step, attempt, lastErr.Error())
	}
	return fmt.Errorf("step %s exhausted %d attempts: %w", step, maxStepAttempts, lastErr)
}

// enter advances the run to the next state, honoring cancellation at
// the boundary.
func (c *Correlation) enter(ctx context.Context, r *run, next domain.RunState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRunCancelled, err)
	}
	r.state = next
	logger.Debug("Run %s entered %s", r.id, next)
	c.record(ctx, r, "", 0, "")
	return nil
}

// fail finalizes the run in the Failed state. The report and the error
// carry the same failure.
func (c *Correlation) fail(ctx context.Context, r *run, step string, err error) (*domain.Report, error) {
	last := r.state
	r.state = domain.StateFailed
	c.record(ctx, r, step, 0, err.Error())
	logger.Warn("Run %s failed at %s (last state %s): %v", r.id, step, last, err)
	return &domain.Report{
		RunID:              r.id,
		Package:            r.pkg,
		State:              domain.StateFailed,
		FailedAt:           step,
		Reason:             err.Error(),
		LastState:          last,
		UnavailableSources: c.unavailableSources(ctx),
		CreatedAt:          c.now().UTC(),
	}, err
}

// unavailableSources lists sources whose latest ingestion failed
// outright, sorted for stable output. Best effort: a fetch-log read
// error only logs.
func (c *Correlation) unavailableSources(ctx context.Context) []domain.Source {
	if c.fetchLog == nil {
		return nil
	}
	statuses, err := c.fetchLog.LatestStatus(ctx)
	if err != nil {
		logger.Warn("Could not read source availability: %v", err)
		return nil
	}
	var out []domain.Source
	for source, status := range statuses {
		if status == domain.FetchFailure {
			out = append(out, source)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// record appends a trace event; trace failures never fail the run.
func (c *Correlation) record(ctx context.Context, r *run, step string, attempt int, detail string) {
	if c.trace == nil {
		return
	}
	err := c.trace.Append(ctx, domain.TraceEvent{
		RunID:   r.id,
		State:   r.state,
		Step:    step,
		Attempt: attempt,
		Detail:  detail,
		At:      c.now().UTC(),
	})
	if err != nil {
		logger.Warn("Trace append failed: %v", err)
	}
}

// filterByKeys returns the retrieved items whose natural keys the
// reasoner selected, preserving retrieval order and dropping unknown
// keys.
func filterByKeys(items []domain.NormalizedItem, keys []string) []domain.NormalizedItem {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	var out []domain.NormalizedItem
	for _, item := range items {
		if wanted[item.NaturalKey] {
			out = append(out, item)
		}
	}
	return out
}

// reportedCVEs projects selected items into report entries.
func reportedCVEs(items []domain.NormalizedItem) []domain.ReportedCVE {
	out := make([]domain.ReportedCVE, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ReportedCVE{
			NaturalKey: item.NaturalKey,
			Title:      item.Title,
			Severity:   item.Severity,
		})
	}
	return out
}
