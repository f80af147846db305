package analyst

import (
	"strings"

	"ridge.run/sentinel/internal/globaltime"
	"ridge.run/sentinel/internal/intel"
)

// Synthesize is the reduce phase: chunk-level candidates collapse into
// document-level events. Overlapping chunks often report the same underlying
// event, so financial candidates reduce to the single largest claim, guidance
// candidates merge into one outlook event, and procurement notices pass
// through individually (one document can legitimately carry several awards).
func Synthesize(doc intel.Document, candidates []intel.CandidateEvent) []intel.Event {
	if len(candidates) == 0 {
		return nil
	}

	byKind := map[intel.EventKind][]intel.CandidateEvent{}
	for _, candidate := range candidates {
		byKind[candidate.Kind] = append(byKind[candidate.Kind], candidate)
	}

	var events []intel.Event
	if financial := byKind[intel.KindFinancial]; len(financial) > 0 {
		events = append(events, buildEvent(doc, pickLargest(financial)))
	}
	for _, candidate := range dedupeByHeadline(byKind[intel.KindProcurement]) {
		events = append(events, buildEvent(doc, candidate))
	}
	if guidance := byKind[intel.KindGuidance]; len(guidance) > 0 {
		events = append(events, buildEvent(doc, mergeGuidance(guidance)))
	}
	return events
}

// pickLargest keeps the candidate with the highest dollar value; chunk order
// breaks ties so the outcome is deterministic.
func pickLargest(candidates []intel.CandidateEvent) intel.CandidateEvent {
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if value(candidate) > value(best) {
			best = candidate
		}
	}
	return best
}

func value(candidate intel.CandidateEvent) float64 {
	if candidate.ValueUSD == nil {
		return 0
	}
	return *candidate.ValueUSD
}

func dedupeByHeadline(candidates []intel.CandidateEvent) []intel.CandidateEvent {
	seen := map[string]struct{}{}
	out := make([]intel.CandidateEvent, 0, len(candidates))
	for _, candidate := range candidates {
		key := strings.ToLower(strings.TrimSpace(candidate.Headline))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// mergeGuidance collapses multiple guidance mentions into one event carrying
// the largest figure and the combined detail text.
func mergeGuidance(candidates []intel.CandidateEvent) intel.CandidateEvent {
	merged := pickLargest(candidates)
	if len(candidates) == 1 {
		return merged
	}
	details := make([]string, 0, len(candidates))
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		detail := strings.TrimSpace(candidate.Detail)
		if detail == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(detail)]; ok {
			continue
		}
		seen[strings.ToLower(detail)] = struct{}{}
		details = append(details, detail)
	}
	merged.Detail = strings.Join(details, " ")
	return merged
}

func buildEvent(doc intel.Document, candidate intel.CandidateEvent) intel.Event {
	organization := candidate.Organization
	if organization == "" {
		organization = doc.Organization
	}
	occurredAt := doc.PublishedAt
	if occurredAt.IsZero() {
		occurredAt = globaltime.UTC()
	}
	return intel.Event{
		DocumentID:      doc.ID,
		Organization:    organization,
		Kind:            candidate.Kind,
		ValueUSD:        candidate.ValueUSD,
		Headline:        candidate.Headline,
		Detail:          candidate.Detail,
		ConsultingAngle: consultingAngle(candidate),
		SourceType:      doc.SourceType,
		SourceURL:       doc.OriginURL,
		OccurredAt:      occurredAt,
	}
}

// consultingAngle translates the event kind into the follow-up framing used in
// briefings downstream. Kept deliberately template-based; the angle is a hook
// for an analyst, not model output.
func consultingAngle(candidate intel.CandidateEvent) string {
	switch candidate.Kind {
	case intel.KindFinancial:
		if candidate.ValueUSD != nil && *candidate.ValueUSD >= 100_000_000 {
			return "Major financial event; likely to drive integration, remediation, or transformation spend."
		}
		return "Material financial event; potential advisory demand around execution and compliance."
	case intel.KindProcurement:
		return "Active procurement; positioning window for delivery and subcontracting support."
	case intel.KindGuidance:
		return "Stated forward spend; early signal for capability planning conversations."
	default:
		return ""
	}
}
