package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/globaltime"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/internal/search"
)

type fakeSearch struct {
	results []search.Result
	err     error
	calls   int
}

func (f *fakeSearch) Search(_ context.Context, _ string, _ int) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testEvent() intel.Event {
	value := 80_000_000.0
	return intel.Event{
		DocumentID:   "doc-1",
		Organization: "Capital_One",
		Kind:         intel.KindFinancial,
		ValueUSD:     &value,
		Headline:     "Capital One fined $80 million over compliance failures",
		OccurredAt:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func newTestValidator(client search.Client) *Validator {
	return New(client, zerolog.Nop(), 0.55, 2, 30)
}

func TestValidateSecondarySourceOnlyYieldsSingleSource(t *testing.T) {
	// A news document mentions the organization and one key term but does not
	// restate the headline, so it counts only as a secondary confirmation.
	corpus := []intel.Document{
		{
			ID:           "doc-2",
			SourceType:   intel.SourceNews,
			Organization: "Capital_One",
			Title:        "Banking roundup",
			BodyText:     "Capital One was in the news this week over compliance questions.",
		},
	}

	v := newTestValidator(&fakeSearch{})
	record := v.Validate(context.Background(), testEvent(), corpus)

	if record.InternalConfirmed {
		t.Fatalf("expected no internal confirmation")
	}
	if record.ExternalConfirmed {
		t.Fatalf("expected no external confirmation")
	}
	if !record.SecondaryConfirmed {
		t.Fatalf("expected secondary confirmation")
	}
	if record.ConfirmationCount != 1 || record.Status != intel.StatusSingleSource {
		t.Fatalf("expected single_source with count 1, got %+v", record)
	}
}

func TestValidateInternalConfirmation(t *testing.T) {
	corpus := []intel.Document{
		{
			ID:           "doc-3",
			SourceType:   intel.SourceFiling,
			Organization: "Capital_One",
			Title:        "8-K disclosure",
			BodyText:     "Capital One disclosed it was fined $80 million following compliance failures identified by regulators.",
		},
	}

	v := newTestValidator(&fakeSearch{})
	record := v.Validate(context.Background(), testEvent(), corpus)

	if !record.InternalConfirmed {
		t.Fatalf("expected internal confirmation from the corroborating filing")
	}
	if record.Status != intel.StatusSingleSource {
		t.Fatalf("expected single_source, got %s", record.Status)
	}
}

func TestValidateExternalRequiresTwoRecentResults(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	recent := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	oneHit := &fakeSearch{results: []search.Result{
		{Title: "Capital One fined $80 million", Snippet: "compliance failures cited", PublishedAt: recent},
	}}

	v := newTestValidator(oneHit)
	record := v.Validate(context.Background(), testEvent(), nil)
	if record.ExternalConfirmed {
		t.Fatalf("one result must not clear the two-result bar")
	}

	twoHits := &fakeSearch{results: []search.Result{
		{Title: "Capital One fined $80 million", Snippet: "compliance failures cited", PublishedAt: recent},
		{Title: "Regulators fine Capital One", Snippet: "an $80 million penalty over compliance failures", PublishedAt: recent},
	}}

	v = newTestValidator(twoHits)
	record = v.Validate(context.Background(), testEvent(), nil)
	if !record.ExternalConfirmed {
		t.Fatalf("two recent matching results must confirm externally")
	}
	if record.Status != intel.StatusSingleSource {
		t.Fatalf("expected single_source, got %s", record.Status)
	}
}

func TestValidateRejectsStaleResults(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	stale := time.Date(2023, 8, 25, 0, 0, 0, 0, time.UTC)
	client := &fakeSearch{results: []search.Result{
		{Title: "Capital One fined $80 million", Snippet: "compliance failures", PublishedAt: stale},
		{Title: "Regulators fine Capital One", Snippet: "$80 million compliance penalty", PublishedAt: stale},
	}}

	v := newTestValidator(client)
	record := v.Validate(context.Background(), testEvent(), nil)
	if record.ExternalConfirmed {
		t.Fatalf("three-year-old coverage must not confirm a current event")
	}
}

func TestValidateDegradesWhenSearchUnavailable(t *testing.T) {
	corpus := []intel.Document{
		{
			ID:           "doc-3",
			SourceType:   intel.SourceFiling,
			Organization: "Capital_One",
			BodyText:     "Capital One fined $80 million over compliance failures, the company said.",
		},
	}
	client := &fakeSearch{err: errors.New("quota: " + search.ErrUnavailable.Error())}

	v := newTestValidator(client)
	record := v.Validate(context.Background(), testEvent(), corpus)

	if record.ExternalConfirmed {
		t.Fatalf("unavailable search must leave external unconfirmed")
	}
	if !record.InternalConfirmed {
		t.Fatalf("internal channel must still run when search is down")
	}
	if record.Status != intel.StatusSingleSource {
		t.Fatalf("expected degraded run to still produce single_source, got %s", record.Status)
	}
}

func TestValidateDoubleSource(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	recent := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	corpus := []intel.Document{
		{
			ID:           "doc-4",
			SourceType:   intel.SourceFiling,
			Organization: "Capital_One",
			BodyText:     "Capital One fined $80 million over compliance failures per the consent order.",
		},
	}
	client := &fakeSearch{results: []search.Result{
		{Title: "Capital One fined $80 million", Snippet: "compliance failures", PublishedAt: recent},
		{Title: "Capital One hit with penalty", Snippet: "fined $80 million over compliance failures", PublishedAt: recent},
	}}

	v := newTestValidator(client)
	record := v.Validate(context.Background(), testEvent(), corpus)

	if record.ConfirmationCount < 2 {
		t.Fatalf("expected at least two confirmations, got %d", record.ConfirmationCount)
	}
	if record.Status != intel.StatusDoubleSource {
		t.Fatalf("expected double_source, got %s", record.Status)
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	t.Parallel()

	if got := intel.StatusDoubleSource.Advance(intel.StatusSingleSource); got != intel.StatusDoubleSource {
		t.Fatalf("status regressed to %s", got)
	}
	if got := intel.StatusUnvalidated.Advance(intel.StatusSingleSource); got != intel.StatusSingleSource {
		t.Fatalf("status failed to advance, got %s", got)
	}
}
