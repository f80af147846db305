package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ridge.run/sentinel/internal/analyst"
	"ridge.run/sentinel/internal/archive"
	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/config"
	"ridge.run/sentinel/internal/db"
	"ridge.run/sentinel/internal/dedup"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/internal/langdetect"
)

// corpusLookbackDays bounds how far back archived documents are pulled in as
// validation corpus for an event.
const corpusLookbackDays = 7

// Chunker splits a document into prioritized spans.
type Chunker interface {
	Split(doc intel.Document) []chunker.Chunk
}

// Analyst runs the map phase over one document's chunks.
type Analyst interface {
	AnalyzeDocument(ctx context.Context, doc intel.Document, chunks []chunker.Chunk) ([]intel.CandidateEvent, error)
}

// Validator cross-checks one event against the corpus.
type Validator interface {
	Validate(ctx context.Context, event intel.Event, corpus []intel.Document) intel.ValidationRecord
}

// Dedup decides whether an event duplicates an archived finding.
type Dedup interface {
	Check(ctx context.Context, event intel.Event, index *dedup.Index) dedup.Decision
}

// Archive persists findings, raw documents, and the run ledger.
type Archive interface {
	StartRun(ctx context.Context, runUUID string) (int64, error)
	FinishRun(ctx context.Context, params db.FinishRunParams) error
	SaveRawDocuments(ctx context.Context, runID int64, docs []intel.Document) (int, error)
	SaveFinding(ctx context.Context, runID int64, record intel.ValidationRecord, decision dedup.Decision) (archive.SaveResult, error)
	LoadDedupEntries(ctx context.Context, organization string, day time.Time) ([]dedup.Entry, error)
	RecentDocuments(ctx context.Context, organization string, since time.Time) ([]intel.Document, error)
}

// Service orchestrates one pipeline run: chunk, analyze, synthesize, validate,
// deduplicate, archive. Collaborators are injected so each stage can be
// exercised against fakes.
type Service struct {
	cfg       *config.Config
	logger    zerolog.Logger
	chunker   Chunker
	analyst   Analyst
	validator Validator
	dedup     Dedup
	archive   Archive
}

func NewService(cfg *config.Config, logger zerolog.Logger, ch Chunker, an Analyst, va Validator, de Dedup, ar Archive) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		chunker:   ch,
		analyst:   an,
		validator: va,
		dedup:     de,
		archive:   ar,
	}
}

// Result summarizes one pipeline run.
type Result struct {
	RunUUID           string `json:"run_uuid"`
	Processed         int    `json:"documents_processed"`
	Skipped           int    `json:"documents_skipped"`
	Failed            int    `json:"documents_failed"`
	Events            int    `json:"events_extracted"`
	FindingsNew       int    `json:"findings_new"`
	FindingsDuplicate int    `json:"findings_duplicate"`
}

// Process runs the full pipeline over a batch of documents. Documents run
// concurrently up to the worker limit; one failing document is logged and
// counted, never fatal. The returned error covers run-level failures only
// (ledger writes, cancellation).
func (s *Service) Process(ctx context.Context, docs []intel.Document) (Result, error) {
	result := Result{RunUUID: uuid.NewString()}

	runID, err := s.archive.StartRun(ctx, result.RunUUID)
	if err != nil {
		return result, fmt.Errorf("start run: %w", err)
	}

	s.logger.Info().
		Str("run_uuid", result.RunUUID).
		Int("documents", len(docs)).
		Msg("pipeline run started")

	if _, err := s.archive.SaveRawDocuments(ctx, runID, docs); err != nil {
		s.finishRun(runID, &result, db.RunStatusFailed, err)
		return result, fmt.Errorf("archive raw documents: %w", err)
	}

	state := &runState{
		runID:  runID,
		corpus: docs,
		index:  dedup.NewIndex(),
		loaded: map[string]bool{},
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.DocumentWorkers)

	for _, doc := range docs {
		if groupCtx.Err() != nil {
			break
		}
		doc := doc
		group.Go(func() error {
			outcome := s.processDocument(groupCtx, state, doc)

			mu.Lock()
			defer mu.Unlock()
			switch outcome.status {
			case docProcessed:
				result.Processed++
			case docSkipped:
				result.Skipped++
			case docFailed:
				result.Failed++
			}
			result.Events += outcome.events
			result.FindingsNew += outcome.findingsNew
			result.FindingsDuplicate += outcome.duplicates
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		s.finishRun(runID, &result, db.RunStatusFailed, err)
		return result, fmt.Errorf("pipeline run cancelled: %w", err)
	}

	s.finishRun(runID, &result, db.RunStatusSucceeded, nil)
	s.logger.Info().
		Str("run_uuid", result.RunUUID).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("findings_new", result.FindingsNew).
		Int("findings_duplicate", result.FindingsDuplicate).
		Msg("pipeline run finished")
	return result, nil
}

type docStatus int

const (
	docProcessed docStatus = iota
	docSkipped
	docFailed
)

type docOutcome struct {
	status      docStatus
	events      int
	findingsNew int
	duplicates  int
}

type runState struct {
	runID  int64
	corpus []intel.Document
	index  *dedup.Index

	mu     sync.Mutex
	loaded map[string]bool
}

func (s *Service) processDocument(ctx context.Context, state *runState, doc intel.Document) docOutcome {
	logger := s.logger.With().Str("document_id", doc.ID).Str("organization", doc.Organization).Logger()

	if !langdetect.IsEnglish(doc.BodyText) {
		logger.Info().Msg("document skipped, not English")
		return docOutcome{status: docSkipped}
	}

	chunks := s.chunker.Split(doc)
	if len(chunks) == 0 {
		logger.Info().Msg("document skipped, empty body")
		return docOutcome{status: docSkipped}
	}

	candidates, err := s.analyst.AnalyzeDocument(ctx, doc, chunks)
	if err != nil {
		logger.Error().Err(err).Msg("document analysis failed")
		return docOutcome{status: docFailed}
	}

	events := analyst.Synthesize(doc, candidates)
	outcome := docOutcome{status: docProcessed, events: len(events)}

	for _, event := range events {
		saved, duplicate, err := s.handleEvent(ctx, state, event)
		if err != nil {
			logger.Error().Err(err).Str("headline", event.Headline).Msg("event archival failed")
			continue
		}
		if duplicate {
			outcome.duplicates++
		} else if saved {
			outcome.findingsNew++
		}
	}
	return outcome
}

// handleEvent validates, deduplicates, and archives one event. Duplicate
// checks and inserts for the same (organization, day) bucket run under one
// lock so two workers cannot both archive the same underlying event.
func (s *Service) handleEvent(ctx context.Context, state *runState, event intel.Event) (saved, duplicate bool, err error) {
	validateCtx, cancelValidate := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	record := s.validator.Validate(validateCtx, event, s.corpusFor(validateCtx, state, event))
	cancelValidate()

	dedupCtx, cancelDedup := context.WithTimeout(ctx, s.cfg.DedupTimeout)
	defer cancelDedup()

	state.mu.Lock()
	defer state.mu.Unlock()

	if err := s.ensureBucket(dedupCtx, state, event); err != nil {
		// The archive scan failing leaves in-run duplicates still catchable.
		s.logger.Warn().Err(err).Msg("archived duplicate scan unavailable for bucket")
	}

	decision := s.dedup.Check(dedupCtx, event, state.index)
	if decision.Duplicate {
		s.logger.Info().
			Int64("matched_finding_id", decision.MatchID).
			Float64("similarity", decision.Similarity).
			Str("headline", event.Headline).
			Msg("event suppressed as duplicate")
		return false, true, nil
	}

	result, err := s.archive.SaveFinding(ctx, state.runID, record, decision)
	if err != nil {
		return false, false, err
	}
	if !result.Inserted {
		return false, true, nil
	}

	state.index.Add(event.Organization, event.OccurredAt, dedup.Entry{
		FindingID: result.FindingID,
		Vector:    decision.Vector,
		Hash:      decision.Hash,
	})
	return true, false, nil
}

// ensureBucket lazily loads archived same-day entries into the run's index
// the first time an (organization, day) bucket is touched. Caller holds
// state.mu.
func (s *Service) ensureBucket(ctx context.Context, state *runState, event intel.Event) error {
	key := event.Organization + "|" + event.OccurredAt.UTC().Format("2006-01-02")
	if state.loaded[key] {
		return nil
	}
	state.loaded[key] = true

	entries, err := s.archive.LoadDedupEntries(ctx, event.Organization, event.OccurredAt)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		state.index.Add(event.Organization, event.OccurredAt, entry)
	}
	return nil
}

// corpusFor assembles the validation corpus: the run's own documents plus
// recently archived ones for the event's organization.
func (s *Service) corpusFor(ctx context.Context, state *runState, event intel.Event) []intel.Document {
	since := event.OccurredAt.AddDate(0, 0, -corpusLookbackDays)
	archived, err := s.archive.RecentDocuments(ctx, event.Organization, since)
	if err != nil {
		s.logger.Warn().Err(err).Msg("archived corpus unavailable, validating against run documents only")
		return state.corpus
	}

	seen := map[string]struct{}{}
	corpus := make([]intel.Document, 0, len(state.corpus)+len(archived))
	for _, doc := range state.corpus {
		seen[doc.ID] = struct{}{}
		corpus = append(corpus, doc)
	}
	for _, doc := range archived {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		corpus = append(corpus, doc)
	}
	return corpus
}

func (s *Service) finishRun(runID int64, result *Result, status string, runErr error) {
	var message *string
	if runErr != nil {
		text := runErr.Error()
		message = &text
	}

	// Run ledger writes use a fresh context so a cancelled run still records
	// its outcome.
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.archive.FinishRun(finishCtx, db.FinishRunParams{
		RunID:              runID,
		Status:             status,
		DocumentsProcessed: result.Processed,
		DocumentsSkipped:   result.Skipped,
		DocumentsFailed:    result.Failed,
		FindingsNew:        result.FindingsNew,
		FindingsDuplicate:  result.FindingsDuplicate,
		ErrorMessage:       message,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("run_id", runID).Msg("finish run ledger write failed")
	}
}
