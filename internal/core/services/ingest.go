package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driving"
	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Ensure Ingest implements the interface.
var _ driving.IngestOrchestrator = (*Ingest)(nil)

// Ingest coordinates the fetch-extract-normalize pipeline. Each
// (package, source) pair runs as an independent pipeline instance;
// catalog sources (MITRE, CAPEC) run once per ingestion regardless of
// packages. A failing source degrades to a fetch-log entry without
// halting the others.
type Ingest struct {
	fetchers   []driven.Fetcher
	registry   driven.SpecialistRegistry
	archive    driven.RawArchive
	fetchLog   driven.FetchLogStore
	normalizer *Normalizer

	mu   sync.RWMutex
	runs map[string]*driving.IngestStatus

	now   func() time.Time
	newID func() string
}

// NewIngest creates an ingest orchestrator over the given fetchers.
func NewIngest(
	fetchers []driven.Fetcher,
	registry driven.SpecialistRegistry,
	archive driven.RawArchive,
	fetchLog driven.FetchLogStore,
	normalizer *Normalizer,
) *Ingest {
	return &Ingest{
		fetchers:   fetchers,
		registry:   registry,
		archive:    archive,
		fetchLog:   fetchLog,
		normalizer: normalizer,
		runs:       make(map[string]*driving.IngestStatus),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// ingestJob is one (package, source) pipeline instance. Package is
// empty for catalog sources.
type ingestJob struct {
	fetcher driven.Fetcher
	pkg     string
}

// Ingest runs the full pipeline for the given packages and blocks
// until every pipeline instance has finished. Status can be polled
// concurrently while it runs.
func (s *Ingest) Ingest(ctx context.Context, packages []string) (string, error) {
	if len(s.fetchers) == 0 {
		return "", fmt.Errorf("%w: no fetchers configured", domain.ErrInvalidInput)
	}

	var jobs []ingestJob
	for _, f := range s.fetchers {
		if f.Capabilities().PackageScoped {
			for _, pkg := range packages {
				jobs = append(jobs, ingestJob{fetcher: f, pkg: pkg})
			}
		} else {
			jobs = append(jobs, ingestJob{fetcher: f})
		}
	}
	if len(jobs) == 0 {
		return "", fmt.Errorf("%w: no packages given and no catalog sources configured", domain.ErrInvalidInput)
	}

	runID := s.newID()
	s.mu.Lock()
	s.runs[runID] = &driving.IngestStatus{RunID: runID, Running: true}
	s.mu.Unlock()

	logger.Section("Ingestion run %s: %d pipelines across %d packages", runID, len(jobs), len(packages))

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job ingestJob) {
			defer wg.Done()
			s.runPipeline(ctx, runID, job)
		}(job)
	}
	wg.Wait()

	s.mu.Lock()
	status := s.runs[runID]
	status.Running = false
	accepted, rejected, fetchErrs := status.Accepted, status.Rejected, status.FetchErrors
	s.mu.Unlock()

	logger.Info("Ingestion run %s done: %d accepted, %d rejected, %d fetch errors",
		runID, accepted, rejected, fetchErrs)

	if accepted == 0 && rejected == 0 && fetchErrs == len(jobs) {
		return runID, fmt.Errorf("%w: all %d fetches failed", domain.ErrFetch, len(jobs))
	}
	return runID, nil
}

// Status returns the counters for a run.
func (s *Ingest) Status(ctx context.Context, runID string) (*driving.IngestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: run %q", domain.ErrNotFound, runID)
	}
	copied := *status
	return &copied, nil
}

// runPipeline executes fetch -> archive -> extract -> normalize for
// one job. Every fetch attempt produces exactly one fetch-log row;
// the row's status degrades to PartialFailure when extraction fails
// after a successful fetch.
func (s *Ingest) runPipeline(ctx context.Context, runID string, job ingestJob) {
	source := job.fetcher.Source()

	raw, err := job.fetcher.Fetch(ctx, job.pkg)
	if err != nil {
		s.recordFailure(ctx, runID, source, job.pkg, "", err)
		return
	}

	rawPath, hash, err := s.archive.Save(ctx, runID, raw)
	if err != nil {
		s.recordFailure(ctx, runID, source, job.pkg, raw.Endpoint,
			fmt.Errorf("archive raw document: %w", err))
		return
	}

	log := &domain.FetchLog{
		ID:        s.newID(),
		RunID:     runID,
		Source:    source,
		Package:   job.pkg,
		Endpoint:  raw.Endpoint,
		Status:    domain.FetchSuccess,
		RawPath:   rawPath,
		FetchedAt: s.now().UTC(),
	}

	candidates, err := s.registry.Extract(ctx, raw, runID)
	if err != nil {
		log.Status = domain.FetchPartialFailure
		log.Error = fmt.Sprintf("extract: %v", err)
		logger.Warn("Extraction failed for %s/%s: %v", source, job.pkg, err)
	}

	if err := s.fetchLog.Record(ctx, log); err != nil {
		logger.Warn("Could not record fetch log for %s/%s: %v", source, job.pkg, err)
	}

	var accepted, rejected int
	for _, cand := range candidates {
		item, rej, err := s.normalizer.Commit(ctx, cand, raw.Content, hash, log.ID)
		switch {
		case err != nil:
			logger.Warn("Commit failed for %s candidate %q: %v", source, cand.CandidateID, err)
		case item != nil:
			accepted++
		case rej != nil:
			rejected++
		}
	}

	s.mu.Lock()
	status := s.runs[runID]
	status.Accepted += accepted
	status.Rejected += rejected
	s.mu.Unlock()

	logger.Info("Pipeline %s/%s: %d accepted, %d rejected", source, job.pkg, accepted, rejected)
}

// recordFailure logs a failed fetch attempt and bumps the error count.
func (s *Ingest) recordFailure(
	ctx context.Context,
	runID string,
	source domain.Source,
	pkg, endpoint string,
	cause error,
) {
	httpStatus := 0
	var fetchErr *domain.FetchError
	if errors.As(cause, &fetchErr) {
		httpStatus = fetchErr.HTTPStatus
	}

	log := &domain.FetchLog{
		ID:         s.newID(),
		RunID:      runID,
		Source:     source,
		Package:    pkg,
		Endpoint:   endpoint,
		Status:     domain.FetchFailure,
		HTTPStatus: httpStatus,
		Error:      cause.Error(),
		FetchedAt:  s.now().UTC(),
	}
	if err := s.fetchLog.Record(ctx, log); err != nil {
		logger.Warn("Could not record fetch failure for %s/%s: %v", source, pkg, err)
	}

	s.mu.Lock()
	s.runs[runID].FetchErrors++
	s.mu.Unlock()

	logger.Warn("Fetch failed for %s/%s: %v", source, pkg, cause)
}
