package analyst

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/inference"
	"ridge.run/sentinel/internal/intel"
)

// fakeInference routes prompts to canned responses keyed by a substring of the
// chunk text embedded in the prompt.
type fakeInference struct {
	mu        sync.Mutex
	calls     int
	triage    map[string]string
	extract   map[string]string
	transient int
}

func (f *fakeInference) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.transient > 0 {
		f.transient--
		return "", fmt.Errorf("simulated overload: %w", inference.ErrTransient)
	}

	table := f.extract
	if strings.Contains(prompt, "triaging") {
		table = f.triage
	}
	for marker, response := range table {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return `{"category":"irrelevant","is_relevant":false}`, nil
}

func testDoc() intel.Document {
	return intel.Document{
		ID:           "doc-1",
		SourceType:   intel.SourceNews,
		Organization: "Capital_One",
		Title:        "Capital One news",
		PublishedAt:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		OriginURL:    "https://example.com/a",
	}
}

func chunkOf(index int, text string) chunker.Chunk {
	return chunker.Chunk{DocumentID: "doc-1", Index: index, Text: text}
}

func newTestAnalyzer(client inference.Client, budget int) *Analyzer {
	return New(client, zerolog.Nop(), budget, 2, 0, 10_000_000)
}

func TestAnalyzeDocumentExtractsFinancialEvent(t *testing.T) {
	t.Parallel()

	fake := &fakeInference{
		triage: map[string]string{
			"FINE_TEXT": `{"category":"news","is_relevant":true}`,
		},
		extract: map[string]string{
			"FINE_TEXT": `{"event_found":true,"value_usd":80000000,"headline":"Capital One fined $80M","summary":"Regulatory penalty.","confidence":"high","organization":"Capital One"}`,
		},
	}

	analyzer := newTestAnalyzer(fake, 8)
	candidates, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{chunkOf(0, "FINE_TEXT")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Kind != intel.KindFinancial || *candidates[0].ValueUSD != 80_000_000 {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
}

func TestAnalyzeDocumentDiscardsBelowFloor(t *testing.T) {
	t.Parallel()

	// The model claims an event, but $5M is below the materiality floor: the
	// defensive re-check must discard it regardless of the model's opinion.
	fake := &fakeInference{
		triage: map[string]string{
			"SMALL_DEAL": `{"category":"news","is_relevant":true}`,
		},
		extract: map[string]string{
			"SMALL_DEAL": `{"event_found":true,"value_usd":5000000,"headline":"Capital One pays $5M","summary":"Minor settlement.","confidence":"high","organization":"Capital One"}`,
		},
	}

	analyzer := newTestAnalyzer(fake, 8)
	candidates, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{chunkOf(0, "SMALL_DEAL")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected below-floor candidate to be discarded, got %+v", candidates)
	}
}

func TestAnalyzeDocumentSkipsIrrelevantChunks(t *testing.T) {
	t.Parallel()

	fake := &fakeInference{
		triage: map[string]string{
			"WEATHER": `{"category":"irrelevant","is_relevant":false}`,
		},
		extract: map[string]string{},
	}

	analyzer := newTestAnalyzer(fake, 8)
	candidates, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{chunkOf(0, "WEATHER")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", candidates)
	}
	if fake.calls != 1 {
		t.Fatalf("irrelevant chunk must cost exactly one triage call, got %d calls", fake.calls)
	}
}

func TestAnalyzeDocumentRespectsBudget(t *testing.T) {
	t.Parallel()

	fake := &fakeInference{triage: map[string]string{}, extract: map[string]string{}}
	analyzer := newTestAnalyzer(fake, 2)

	chunks := []chunker.Chunk{
		chunkOf(0, "AAA"), chunkOf(1, "BBB"), chunkOf(2, "CCC"), chunkOf(3, "DDD"),
	}
	if _, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Every chunk falls through to the irrelevant default, so calls == chunks
	// analyzed. Only the first two fit the budget.
	if fake.calls != 2 {
		t.Fatalf("expected budget of 2 chunks, got %d calls", fake.calls)
	}
}

func TestAnalyzeDocumentSurvivesMalformedOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeInference{
		triage: map[string]string{
			"GARBAGE": `{"category":"news","is_relevant":true}`,
			"GOOD":    `{"category":"news","is_relevant":true}`,
		},
		extract: map[string]string{
			"GARBAGE": `this is not JSON`,
			"GOOD":    `{"event_found":true,"value_usd":40000000,"headline":"Capital One invests $40M","summary":"Strategic investment.","confidence":"medium","organization":"Capital One"}`,
		},
	}

	analyzer := newTestAnalyzer(fake, 8)
	candidates, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{
		chunkOf(0, "GARBAGE"),
		chunkOf(1, "GOOD"),
	})
	if err != nil {
		t.Fatalf("malformed output must not abort the document: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Headline != "Capital One invests $40M" {
		t.Fatalf("expected the well-formed chunk to survive, got %+v", candidates)
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	fake := &fakeInference{
		transient: 2,
		triage: map[string]string{
			"FLAKY": `{"category":"irrelevant","is_relevant":false}`,
		},
		extract: map[string]string{},
	}

	analyzer := newTestAnalyzer(fake, 8)
	candidates, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{chunkOf(0, "FLAKY")})
	if err != nil {
		t.Fatalf("transient failures within the retry budget must recover: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", candidates)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 2 failed attempts plus 1 success, got %d calls", fake.calls)
	}
}

func TestAnalyzeDocumentFilingFallsBackToGuidance(t *testing.T) {
	t.Parallel()

	// Route extraction responses by the task phrasing rather than the chunk
	// marker: the same chunk text appears in both extraction prompts.
	fake := &fakeInference{
		triage: map[string]string{
			"OUTLOOK": `{"category":"filing","is_relevant":true}`,
		},
		extract: map[string]string{
			"most significant financial": `{"event_found":false}`,
			"forward-looking":            `{"guidance_found":false}`,
		},
	}

	analyzer := newTestAnalyzer(fake, 8)
	_, err := analyzer.AnalyzeDocument(context.Background(), testDoc(), []chunker.Chunk{chunkOf(0, "OUTLOOK")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected triage + financial + guidance calls, got %d", fake.calls)
	}
}
