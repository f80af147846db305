package intel

import "time"

// SourceType classifies where a document came from.
type SourceType string

const (
	SourceFiling      SourceType = "filing"
	SourceNews        SourceType = "news"
	SourceProcurement SourceType = "procurement"
)

// EventKind classifies an extracted business event.
type EventKind string

const (
	KindFinancial   EventKind = "financial"
	KindProcurement EventKind = "procurement"
	KindGuidance    EventKind = "guidance"
)

// ConfidenceTier is the inference service's self-reported confidence.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// Document is an ingested text item about one monitored organization.
// Immutable once produced by the upstream extractors.
type Document struct {
	ID           string
	SourceType   SourceType
	Organization string
	Title        string
	BodyText     string
	PublishedAt  time.Time
	OriginURL    string
}

// CandidateEvent is an unconfirmed extraction from a single chunk. Candidates
// are transient; they exist only between the map and reduce phases.
type CandidateEvent struct {
	ChunkIndex   int
	Kind         EventKind
	ValueUSD     *float64
	Confidence   ConfidenceTier
	Headline     string
	Detail       string
	Organization string
}

// Event is a document-level structured claim after reduction across chunks.
// Invariant: ValueUSD is nil or at least the configured materiality floor.
type Event struct {
	DocumentID      string
	Organization    string
	Kind            EventKind
	ValueUSD        *float64
	Headline        string
	Detail          string
	ConsultingAngle string
	SourceType      SourceType
	SourceURL       string
	OccurredAt      time.Time
}

// ValidationStatus is the confirmation tier of an event. Tiers only advance.
type ValidationStatus string

const (
	StatusUnvalidated  ValidationStatus = "unvalidated"
	StatusSingleSource ValidationStatus = "single_source"
	StatusDoubleSource ValidationStatus = "double_source"
)

func (s ValidationStatus) rank() int {
	switch s {
	case StatusSingleSource:
		return 1
	case StatusDoubleSource:
		return 2
	default:
		return 0
	}
}

// Advance returns the higher of the two tiers; a status never regresses.
func (s ValidationStatus) Advance(next ValidationStatus) ValidationStatus {
	if next.rank() > s.rank() {
		return next
	}
	return s
}

// StatusForCount maps a confirmation count onto a tier.
func StatusForCount(count int) ValidationStatus {
	switch {
	case count >= 2:
		return StatusDoubleSource
	case count == 1:
		return StatusSingleSource
	default:
		return StatusUnvalidated
	}
}

// ValidationRecord is the outcome of cross-source validation for one event.
type ValidationRecord struct {
	Event              Event
	InternalConfirmed  bool
	ExternalConfirmed  bool
	SecondaryConfirmed bool
	ConfirmationCount  int
	Status             ValidationStatus
}
