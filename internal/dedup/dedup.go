package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/embedding"
	"ridge.run/sentinel/internal/intel"
)

const DefaultThreshold = 0.85

// Entry is one previously archived finding within a (organization, day)
// bucket, carried as its summary vector plus an exact-match content hash for
// the degraded path.
type Entry struct {
	FindingID int64
	Vector    []float64
	Hash      string
}

// Index holds candidate duplicates bucketed by organization and calendar day.
// Comparing a new event only against its own bucket keeps the scan bounded
// regardless of archive size.
type Index struct {
	buckets map[string][]Entry
}

func NewIndex() *Index {
	return &Index{buckets: map[string][]Entry{}}
}

func (x *Index) Add(organization string, day time.Time, entry Entry) {
	key := bucketKey(organization, day)
	x.buckets[key] = append(x.buckets[key], entry)
}

func (x *Index) bucket(organization string, day time.Time) []Entry {
	return x.buckets[bucketKey(organization, day)]
}

func bucketKey(organization string, day time.Time) string {
	return organization + "|" + day.UTC().Format("2006-01-02")
}

// Decision is the outcome of a duplicate check. Vector and Summary are filled
// on the normal path so the caller can archive them alongside a new finding;
// Degraded marks that only exact-hash matching was possible.
type Decision struct {
	Duplicate  bool
	MatchID    int64
	Similarity float64
	Summary    string
	Hash       string
	Vector     []float64
	Degraded   bool
}

type Deduplicator struct {
	embed     embedding.Client
	logger    zerolog.Logger
	threshold float64
}

func New(client embedding.Client, logger zerolog.Logger, threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{
		embed:     client,
		logger:    logger,
		threshold: threshold,
	}
}

// Check decides whether event duplicates an already archived finding from the
// same organization and day. The summary it embeds is built from structured
// fields only, so rephrased headlines for the same underlying event still
// collapse. An embedding failure degrades to exact content-hash matching
// rather than blocking the event.
func (d *Deduplicator) Check(ctx context.Context, event intel.Event, index *Index) Decision {
	summary := CanonicalSummary(event)
	decision := Decision{
		Summary: summary,
		Hash:    contentHash(summary),
	}

	entries := index.bucket(event.Organization, event.OccurredAt)

	vector, err := d.embed.Embed(ctx, summary)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("organization", event.Organization).
			Msg("dedup degraded to exact-hash matching, embedding unavailable")
		decision.Degraded = true
		for _, entry := range entries {
			if entry.Hash == decision.Hash {
				decision.Duplicate = true
				decision.MatchID = entry.FindingID
				decision.Similarity = 1
				return decision
			}
		}
		return decision
	}
	decision.Vector = vector

	for _, entry := range entries {
		if entry.Hash == decision.Hash {
			decision.Duplicate = true
			decision.MatchID = entry.FindingID
			decision.Similarity = 1
			return decision
		}
		similarity := embedding.Cosine(vector, entry.Vector)
		if similarity >= d.threshold && similarity > decision.Similarity {
			decision.Duplicate = true
			decision.MatchID = entry.FindingID
			decision.Similarity = similarity
		}
	}
	return decision
}

// CanonicalSummary renders the event's structured identity. Free-form headline
// wording is deliberately excluded; two reports of the same fine phrased
// differently produce the same summary.
func CanonicalSummary(event intel.Event) string {
	parts := []string{
		intel.DisplayName(event.Organization),
		string(event.Kind),
	}
	if event.ValueUSD != nil {
		parts = append(parts, fmt.Sprintf("USD %.0f", *event.ValueUSD))
	}
	if detail := normalizeText(event.Detail); detail != "" {
		parts = append(parts, detail)
	}
	return strings.Join(parts, " | ")
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func contentHash(summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return hex.EncodeToString(sum[:])
}
