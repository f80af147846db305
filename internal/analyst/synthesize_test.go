package analyst

import (
	"strings"
	"testing"
	"time"

	"ridge.run/sentinel/internal/intel"
)

func ptr(v float64) *float64 { return &v }

func TestSynthesizeEmptyInput(t *testing.T) {
	t.Parallel()

	if events := Synthesize(testDoc(), nil); events != nil {
		t.Fatalf("expected nil events for no candidates, got %+v", events)
	}
}

func TestSynthesizeKeepsLargestFinancialClaim(t *testing.T) {
	t.Parallel()

	// Overlapping chunks reported the same fine with different figures; the
	// reduce phase must keep exactly one event, the largest claim.
	candidates := []intel.CandidateEvent{
		{ChunkIndex: 0, Kind: intel.KindFinancial, ValueUSD: ptr(50_000_000), Headline: "Fine reported", Confidence: intel.ConfidenceMedium},
		{ChunkIndex: 1, Kind: intel.KindFinancial, ValueUSD: ptr(80_000_000), Headline: "Fine confirmed at $80M", Confidence: intel.ConfidenceHigh},
		{ChunkIndex: 2, Kind: intel.KindFinancial, ValueUSD: ptr(80_000_000), Headline: "Fine duplicate", Confidence: intel.ConfidenceHigh},
	}

	events := Synthesize(testDoc(), candidates)
	if len(events) != 1 {
		t.Fatalf("expected 1 financial event, got %d", len(events))
	}
	if *events[0].ValueUSD != 80_000_000 || events[0].Headline != "Fine confirmed at $80M" {
		t.Fatalf("unexpected reduced event: %+v", events[0])
	}
}

func TestSynthesizeKeepsDistinctProcurementNotices(t *testing.T) {
	t.Parallel()

	candidates := []intel.CandidateEvent{
		{ChunkIndex: 0, Kind: intel.KindProcurement, ValueUSD: ptr(20_000_000), Headline: "IT services award"},
		{ChunkIndex: 1, Kind: intel.KindProcurement, ValueUSD: ptr(35_000_000), Headline: "Facilities contract"},
		{ChunkIndex: 2, Kind: intel.KindProcurement, ValueUSD: ptr(20_000_000), Headline: "IT services award"},
	}

	events := Synthesize(testDoc(), candidates)
	if len(events) != 2 {
		t.Fatalf("expected 2 distinct procurement events, got %d", len(events))
	}
}

func TestSynthesizeMergesGuidance(t *testing.T) {
	t.Parallel()

	candidates := []intel.CandidateEvent{
		{ChunkIndex: 0, Kind: intel.KindGuidance, ValueUSD: ptr(100_000_000), Headline: "Cloud spend outlook", Detail: "Cloud migration budget."},
		{ChunkIndex: 1, Kind: intel.KindGuidance, ValueUSD: ptr(250_000_000), Headline: "Tech investment plan", Detail: "Multi-year modernization."},
	}

	events := Synthesize(testDoc(), candidates)
	if len(events) != 1 {
		t.Fatalf("expected 1 merged guidance event, got %d", len(events))
	}
	if *events[0].ValueUSD != 250_000_000 {
		t.Fatalf("expected the larger figure to win, got %v", *events[0].ValueUSD)
	}
	if !strings.Contains(events[0].Detail, "Cloud migration budget.") || !strings.Contains(events[0].Detail, "Multi-year modernization.") {
		t.Fatalf("expected combined detail, got %q", events[0].Detail)
	}
}

func TestSynthesizeFillsDocumentFields(t *testing.T) {
	t.Parallel()

	doc := testDoc()
	events := Synthesize(doc, []intel.CandidateEvent{
		{ChunkIndex: 0, Kind: intel.KindFinancial, ValueUSD: ptr(40_000_000), Headline: "Investment"},
	})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.DocumentID != doc.ID || event.Organization != doc.Organization || event.SourceURL != doc.OriginURL {
		t.Fatalf("document fields not carried over: %+v", event)
	}
	if !event.OccurredAt.Equal(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred_at from published_at, got %v", event.OccurredAt)
	}
	if event.ConsultingAngle == "" {
		t.Fatalf("expected a consulting angle to be derived")
	}
}
