package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/inference"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/schema"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Analyzer runs the map phase: each chunk gets a cheap triage call, and
// relevant chunks get one extraction call. Spend is bounded by the per-document
// chunk budget and the shared request rate limiter.
type Analyzer struct {
	inference inference.Client
	logger    zerolog.Logger
	budget    int
	workers   int
	limiter   *rate.Limiter
	floorUSD  float64
}

func New(client inference.Client, logger zerolog.Logger, budget, workers int, requestsPerSecond, floorUSD float64) *Analyzer {
	if budget < 1 {
		budget = 1
	}
	if workers < 1 {
		workers = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Analyzer{
		inference: client,
		logger:    logger,
		budget:    budget,
		workers:   workers,
		limiter:   limiter,
		floorUSD:  floorUSD,
	}
}

// AnalyzeDocument inspects the highest-priority chunks of one document, up to
// the call budget, and returns the candidate events found. A chunk whose
// inference output is malformed or persistently failing is logged and skipped;
// only context cancellation aborts the whole document.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, doc intel.Document, chunks []chunker.Chunk) ([]intel.CandidateEvent, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(chunks) > a.budget {
		chunks = chunks[:a.budget]
	}

	results := make([][]intel.CandidateEvent, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			candidates, err := a.analyzeChunk(groupCtx, doc, chunk)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				a.logger.Warn().
					Err(err).
					Str("document_id", doc.ID).
					Int("chunk_index", chunk.Index).
					Msg("chunk analysis skipped")
				return nil
			}
			results[i] = candidates
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("analyze document id=%s: %w", doc.ID, err)
	}

	var out []intel.CandidateEvent
	for _, candidates := range results {
		out = append(out, candidates...)
	}
	return out, nil
}

func (a *Analyzer) analyzeChunk(ctx context.Context, doc intel.Document, chunk chunker.Chunk) ([]intel.CandidateEvent, error) {
	triageRaw, err := a.complete(ctx, triagePrompt(doc, chunk))
	if err != nil {
		return nil, fmt.Errorf("triage chunk %d: %w", chunk.Index, err)
	}
	triage, err := schema.ParseTriageResult(triageRaw)
	if err != nil {
		return nil, fmt.Errorf("parse triage for chunk %d: %w", chunk.Index, err)
	}
	if !triage.IsRelevant || triage.Category == schema.CategoryIrrelevant {
		return nil, nil
	}

	switch triage.Category {
	case schema.CategoryProcurement:
		return a.extractProcurement(ctx, doc, chunk)
	case schema.CategoryFiling:
		candidates, err := a.extractFinancial(ctx, doc, chunk)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
		return a.extractGuidance(ctx, doc, chunk)
	default:
		return a.extractFinancial(ctx, doc, chunk)
	}
}

func (a *Analyzer) extractFinancial(ctx context.Context, doc intel.Document, chunk chunker.Chunk) ([]intel.CandidateEvent, error) {
	raw, err := a.complete(ctx, financialPrompt(doc, chunk))
	if err != nil {
		return nil, fmt.Errorf("extract financial event from chunk %d: %w", chunk.Index, err)
	}
	result, err := schema.ParseFinancialEventResult(raw)
	if err != nil {
		return nil, fmt.Errorf("parse financial event for chunk %d: %w", chunk.Index, err)
	}
	if !result.EventFound {
		return nil, nil
	}
	candidate := intel.CandidateEvent{
		ChunkIndex:   chunk.Index,
		Kind:         intel.KindFinancial,
		ValueUSD:     result.ValueUSD,
		Confidence:   intel.ConfidenceTier(result.Confidence),
		Headline:     strings.TrimSpace(result.Headline),
		Detail:       strings.TrimSpace(result.Summary),
		Organization: doc.Organization,
	}
	if !a.clearsFloor(candidate) {
		a.logBelowFloor(doc, candidate)
		return nil, nil
	}
	return []intel.CandidateEvent{candidate}, nil
}

func (a *Analyzer) extractProcurement(ctx context.Context, doc intel.Document, chunk chunker.Chunk) ([]intel.CandidateEvent, error) {
	raw, err := a.complete(ctx, procurementPrompt(doc, chunk))
	if err != nil {
		return nil, fmt.Errorf("extract procurement notice from chunk %d: %w", chunk.Index, err)
	}
	result, err := schema.ParseProcurementResult(raw)
	if err != nil {
		return nil, fmt.Errorf("parse procurement notice for chunk %d: %w", chunk.Index, err)
	}
	if !result.NoticeFound {
		return nil, nil
	}
	candidate := intel.CandidateEvent{
		ChunkIndex:   chunk.Index,
		Kind:         intel.KindProcurement,
		ValueUSD:     result.ValueUSD,
		Confidence:   intel.ConfidenceTier(result.Confidence),
		Headline:     strings.TrimSpace(result.Headline),
		Detail:       strings.TrimSpace(result.Summary),
		Organization: doc.Organization,
	}
	if candidate.ValueUSD != nil && *candidate.ValueUSD < a.floorUSD {
		a.logBelowFloor(doc, candidate)
		return nil, nil
	}
	return []intel.CandidateEvent{candidate}, nil
}

func (a *Analyzer) extractGuidance(ctx context.Context, doc intel.Document, chunk chunker.Chunk) ([]intel.CandidateEvent, error) {
	raw, err := a.complete(ctx, guidancePrompt(doc, chunk))
	if err != nil {
		return nil, fmt.Errorf("extract forward guidance from chunk %d: %w", chunk.Index, err)
	}
	result, err := schema.ParseGuidanceResult(raw)
	if err != nil {
		return nil, fmt.Errorf("parse forward guidance for chunk %d: %w", chunk.Index, err)
	}
	if !result.GuidanceFound {
		return nil, nil
	}
	candidate := intel.CandidateEvent{
		ChunkIndex:   chunk.Index,
		Kind:         intel.KindGuidance,
		ValueUSD:     result.ValueUSD,
		Confidence:   intel.ConfidenceTier(result.Confidence),
		Headline:     strings.TrimSpace(result.Headline),
		Detail:       strings.TrimSpace(result.Summary),
		Organization: doc.Organization,
	}
	if !a.clearsFloor(candidate) {
		a.logBelowFloor(doc, candidate)
		return nil, nil
	}
	return []intel.CandidateEvent{candidate}, nil
}

// clearsFloor re-checks materiality regardless of what the model claimed.
// Financial and guidance candidates must carry a value at or above the floor.
func (a *Analyzer) clearsFloor(candidate intel.CandidateEvent) bool {
	if candidate.ValueUSD == nil {
		return false
	}
	return *candidate.ValueUSD >= a.floorUSD
}

func (a *Analyzer) logBelowFloor(doc intel.Document, candidate intel.CandidateEvent) {
	event := a.logger.Debug().
		Str("document_id", doc.ID).
		Int("chunk_index", candidate.ChunkIndex).
		Str("kind", string(candidate.Kind))
	if candidate.ValueUSD != nil {
		event = event.Float64("value_usd", *candidate.ValueUSD)
	}
	event.Msg("candidate below materiality floor discarded")
}

// complete waits on the shared rate limiter and retries transient failures
// with exponential backoff before giving up on the chunk.
func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
		raw, err := a.inference.Complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !inference.IsTransient(err) || ctx.Err() != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", fmt.Errorf("inference failed after %d attempts: %w", maxAttempts, lastErr)
}
