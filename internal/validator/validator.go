package validator

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/globaltime"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/internal/search"
)

const (
	DefaultMinScore    = 0.55
	DefaultMinResults  = 2
	DefaultRecencyDays = 30

	// Per-result score weighting for external search hits.
	orgMatchWeight  = 0.7
	termMatchWeight = 0.3

	// Fraction of headline key terms another internal document must share to
	// count as an independent internal confirmation.
	internalOverlapFraction = 0.6
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "into": {}, "over": {}, "after": {}, "about": {}, "pays": {},
	"will": {}, "has": {}, "its": {}, "their": {}, "have": {}, "been": {},
}

// Validator cross-checks an extracted event against the run's own corpus and
// an external search index. Each independent confirmation channel contributes
// at most one count; the count maps onto the validation tier.
type Validator struct {
	search      search.Client
	logger      zerolog.Logger
	minScore    float64
	minResults  int
	recencyDays int
}

func New(client search.Client, logger zerolog.Logger, minScore float64, minResults, recencyDays int) *Validator {
	if minScore <= 0 || minScore > 1 {
		minScore = DefaultMinScore
	}
	if minResults < 1 {
		minResults = DefaultMinResults
	}
	if recencyDays < 1 {
		recencyDays = DefaultRecencyDays
	}
	return &Validator{
		search:      client,
		logger:      logger,
		minScore:    minScore,
		minResults:  minResults,
		recencyDays: recencyDays,
	}
}

// Validate always returns a record; an unavailable search service degrades the
// external channel to unconfirmed instead of failing the event.
func (v *Validator) Validate(ctx context.Context, event intel.Event, corpus []intel.Document) intel.ValidationRecord {
	terms := keyTerms(event.Headline)

	record := intel.ValidationRecord{Event: event}
	record.InternalConfirmed = v.confirmInternal(event, terms, corpus)
	record.ExternalConfirmed = v.confirmExternal(ctx, event, terms)
	record.SecondaryConfirmed = v.confirmSecondary(event, terms, corpus)

	for _, confirmed := range []bool{record.InternalConfirmed, record.ExternalConfirmed, record.SecondaryConfirmed} {
		if confirmed {
			record.ConfirmationCount++
		}
	}
	record.Status = intel.StatusForCount(record.ConfirmationCount)
	return record
}

// confirmInternal looks for a second document in the corpus, other than the
// event's own source, that independently carries most of the headline's key
// terms.
func (v *Validator) confirmInternal(event intel.Event, terms []string, corpus []intel.Document) bool {
	if len(terms) == 0 {
		return false
	}
	for _, doc := range corpus {
		if doc.ID == event.DocumentID || doc.Organization != event.Organization {
			continue
		}
		if termOverlap(doc.Title+" "+doc.BodyText, terms) >= internalOverlapFraction {
			return true
		}
	}
	return false
}

// confirmExternal queries the external index once per event and requires
// enough recent, well-matching results. Hits without a published date are
// treated as recent; only a known stale date disqualifies a hit.
func (v *Validator) confirmExternal(ctx context.Context, event intel.Event, terms []string) bool {
	if v.search == nil {
		return false
	}

	query := event.Headline + " " + intel.DisplayName(event.Organization)
	results, err := v.search.Search(ctx, query, v.recencyDays)
	if err != nil {
		v.logger.Warn().
			Err(err).
			Str("organization", event.Organization).
			Msg("external validation degraded, search unavailable")
		return false
	}

	cutoff := globaltime.UTC().AddDate(0, 0, -v.recencyDays)
	confirming := 0
	for _, result := range results {
		if !result.PublishedAt.IsZero() && result.PublishedAt.Before(cutoff) {
			continue
		}
		if v.scoreResult(result, event, terms) < v.minScore {
			continue
		}
		confirming++
		if confirming >= v.minResults {
			return true
		}
	}
	return false
}

// confirmSecondary scans news-source documents for a weaker corroboration:
// the organization plus at least one headline key term.
func (v *Validator) confirmSecondary(event intel.Event, terms []string, corpus []intel.Document) bool {
	for _, doc := range corpus {
		if doc.ID == event.DocumentID || doc.SourceType != intel.SourceNews {
			continue
		}
		text := doc.Title + " " + doc.BodyText
		if !intel.MentionsOrganization(text, event.Organization) {
			continue
		}
		if termOverlap(text, terms) > 0 {
			return true
		}
	}
	return false
}

func (v *Validator) scoreResult(result search.Result, event intel.Event, terms []string) float64 {
	text := result.Title + " " + result.Snippet
	score := 0.0
	if intel.MentionsOrganization(text, event.Organization) {
		score += orgMatchWeight
	}
	score += termMatchWeight * termOverlap(text, terms)
	return score
}

// keyTerms picks the distinctive words of a headline: lowercased, stopwords
// and short tokens dropped.
func keyTerms(headline string) []string {
	fields := strings.Fields(strings.ToLower(headline))
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, `.,;:"'()[]`)
		if len(term) <= 3 {
			continue
		}
		if _, ok := stopwords[term]; ok {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// termOverlap is the fraction of terms present in text, case-insensitive.
func termOverlap(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
