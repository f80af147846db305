package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/archive"
	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/config"
	"ridge.run/sentinel/internal/db"
	"ridge.run/sentinel/internal/dedup"
	"ridge.run/sentinel/internal/intel"
)

type fakeAnalyst struct {
	candidates map[string][]intel.CandidateEvent
	err        error
}

func (f *fakeAnalyst) AnalyzeDocument(_ context.Context, doc intel.Document, _ []chunker.Chunk) ([]intel.CandidateEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[doc.ID], nil
}

type fakeValidator struct{}

func (fakeValidator) Validate(_ context.Context, event intel.Event, _ []intel.Document) intel.ValidationRecord {
	return intel.ValidationRecord{
		Event:             event,
		InternalConfirmed: true,
		ConfirmationCount: 1,
		Status:            intel.StatusSingleSource,
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

// memoryArchive is an in-memory Archive honoring event-hash idempotence.
type memoryArchive struct {
	mu        sync.Mutex
	nextID    int64
	byHash    map[string]int64
	runs      map[int64]db.FinishRunParams
	documents []intel.Document
	saveErr   error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{nextID: 1, byHash: map[string]int64{}, runs: map[int64]db.FinishRunParams{}}
}

func (m *memoryArchive) StartRun(_ context.Context, _ string) (int64, error) {
	return 1, nil
}

func (m *memoryArchive) FinishRun(_ context.Context, params db.FinishRunParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[params.RunID] = params
	return nil
}

func (m *memoryArchive) SaveRawDocuments(_ context.Context, _ int64, docs []intel.Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, docs...)
	return len(docs), nil
}

func (m *memoryArchive) SaveFinding(_ context.Context, _ int64, record intel.ValidationRecord, decision dedup.Decision) (archive.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return archive.SaveResult{}, m.saveErr
	}
	if id, ok := m.byHash[decision.Hash]; ok {
		return archive.SaveResult{FindingID: id, Inserted: false}, nil
	}
	id := m.nextID
	m.nextID++
	m.byHash[decision.Hash] = id
	return archive.SaveResult{FindingID: id, Inserted: true}, nil
}

func (m *memoryArchive) LoadDedupEntries(_ context.Context, _ string, _ time.Time) ([]dedup.Entry, error) {
	return nil, nil
}

func (m *memoryArchive) RecentDocuments(_ context.Context, _ string, _ time.Time) ([]intel.Document, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DocumentWorkers:   2,
		ValidationTimeout: time.Second,
		DedupTimeout:      time.Second,
	}
}

func newTestService(an Analyst, ar Archive) *Service {
	return NewService(
		testConfig(),
		zerolog.Nop(),
		chunker.New(3000, 500, 10),
		an,
		fakeValidator{},
		dedup.New(fakeEmbedder{}, zerolog.Nop(), 0.85),
		ar,
	)
}

func fineCandidate(value float64) []intel.CandidateEvent {
	return []intel.CandidateEvent{{
		Kind:       intel.KindFinancial,
		ValueUSD:   &value,
		Confidence: intel.ConfidenceHigh,
		Headline:   "Capital One fined $80 million",
		Detail:     "Regulatory penalty over compliance failures.",
	}}
}

func TestProcessSameDayDuplicateCollapses(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	docs := []intel.Document{
		{ID: "news-1", SourceType: intel.SourceNews, Organization: "Capital_One", Title: "Fine reported", BodyText: "Capital One was fined $80 million by regulators over compliance failures.", PublishedAt: day},
		{ID: "news-2", SourceType: intel.SourceNews, Organization: "Capital_One", Title: "Penalty confirmed", BodyText: "Regulators confirmed an $80 million penalty against Capital One for compliance failures.", PublishedAt: day.Add(2 * time.Hour)},
	}

	// Both documents report the same structured event with different wording.
	an := &fakeAnalyst{candidates: map[string][]intel.CandidateEvent{
		"news-1": fineCandidate(80_000_000),
		"news-2": func() []intel.CandidateEvent {
			c := fineCandidate(80_000_000)
			c[0].Headline = "Regulators hit Capital One with $80M penalty"
			return c
		}(),
	}}

	ar := newMemoryArchive()
	result, err := newTestService(an, ar).Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected both documents processed, got %d", result.Processed)
	}
	if result.FindingsNew != 1 || result.FindingsDuplicate != 1 {
		t.Fatalf("expected exactly one finding and one duplicate, got new=%d dup=%d", result.FindingsNew, result.FindingsDuplicate)
	}
	if len(ar.byHash) != 1 {
		t.Fatalf("expected one archived finding, got %d", len(ar.byHash))
	}
}

func TestProcessSkipsEmptyDocuments(t *testing.T) {
	t.Parallel()

	docs := []intel.Document{
		{ID: "empty-1", SourceType: intel.SourceNews, Organization: "Capital_One", BodyText: "   "},
	}

	result, err := newTestService(&fakeAnalyst{}, newMemoryArchive()).Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if result.Skipped != 1 || result.Processed != 0 {
		t.Fatalf("expected one skipped document, got %+v", result)
	}
}

func TestProcessCountsFailedDocuments(t *testing.T) {
	t.Parallel()

	docs := []intel.Document{
		{ID: "bad-1", SourceType: intel.SourceNews, Organization: "Capital_One", BodyText: "Capital One announced a merger.", PublishedAt: time.Now().UTC()},
	}

	an := &fakeAnalyst{err: errors.New("inference exploded")}
	ar := newMemoryArchive()
	result, err := newTestService(an, ar).Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("a failing document must not fail the run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected one failed document, got %+v", result)
	}
	ledger, ok := ar.runs[1]
	if !ok {
		t.Fatalf("expected the run ledger to be closed")
	}
	if ledger.Status != db.RunStatusSucceeded || ledger.DocumentsFailed != 1 {
		t.Fatalf("unexpected ledger entry: %+v", ledger)
	}
}

func TestProcessArchivalErrorDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	docs := []intel.Document{
		{ID: "news-1", SourceType: intel.SourceNews, Organization: "Capital_One", BodyText: "Capital One was fined $80 million.", PublishedAt: day},
	}

	an := &fakeAnalyst{candidates: map[string][]intel.CandidateEvent{"news-1": fineCandidate(80_000_000)}}
	ar := newMemoryArchive()
	ar.saveErr = fmt.Errorf("disk full")

	result, err := newTestService(an, ar).Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("a failing save must not fail the run: %v", err)
	}
	if result.Processed != 1 || result.FindingsNew != 0 {
		t.Fatalf("expected processed document with no findings, got %+v", result)
	}
}

func TestProcessCancelledRunReportsError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []intel.Document{
		{ID: "news-1", SourceType: intel.SourceNews, Organization: "Capital_One", BodyText: "Capital One was fined $80 million.", PublishedAt: time.Now().UTC()},
	}

	ar := newMemoryArchive()
	_, err := newTestService(&fakeAnalyst{}, ar).Process(ctx, docs)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	ledger, ok := ar.runs[1]
	if !ok {
		t.Fatalf("expected the run ledger to be closed even when cancelled")
	}
	if ledger.Status != db.RunStatusFailed {
		t.Fatalf("expected failed ledger status, got %s", ledger.Status)
	}
}
