package chunker

import (
	"regexp"
	"sort"
	"strings"

	"ridge.run/sentinel/internal/intel"
)

const (
	DefaultTargetSize = 3000
	DefaultOverlap    = 500
	DefaultMaxChunks  = 10

	// How far around the target boundary we search for a sentence end.
	boundarySearchRadius = 200

	monetaryWeight = 50.0
	orgWeight      = 30.0
	actionWeight   = 20.0
	keyTermWeight  = 10.0
)

var (
	monetaryPattern = regexp.MustCompile(`(?i)\$\s*[0-9][0-9,.]*(?:\s*(?:million|billion|thousand|mm|m|bn|b|k))?`)
	actionPattern   = regexp.MustCompile(`(?i)\b(?:acqui(?:re[sd]?|sition)|merger|invest(?:s|ed|ment)?|partnership|funding|contract|deal|agreement|fine[sd]?|penalty|launch(?:es|ed)?|announce[sd]?|complete[sd]?|sign(?:s|ed)?|report(?:s|ed)?|disclose[sd]?)\b`)
)

// Chunk is a bounded, overlapping span of a document's body text, scored for
// relevance. Chunks are derived and never persisted.
type Chunk struct {
	DocumentID    string
	Index         int
	Text          string
	CharStart     int
	CharEnd       int
	KeyTerms      []string
	PriorityScore float64
}

type Chunker struct {
	targetSize int
	overlap    int
	maxChunks  int
}

func New(targetSize, overlap, maxChunks int) *Chunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if overlap < 0 || overlap >= targetSize {
		overlap = DefaultOverlap
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	return &Chunker{
		targetSize: targetSize,
		overlap:    overlap,
		maxChunks:  maxChunks,
	}
}

// Split divides the document body into overlapping sentence-respecting spans,
// scores each span, and returns spans ordered by descending priority, capped
// at the configured maximum. An empty or whitespace-only body yields nil.
//
// Adjacent spans overlap so that a sentence crossing a boundary is fully
// contained in at least one span; the whole body is always covered before the
// cap is applied, and the cap keeps the highest-priority spans.
func (c *Chunker) Split(doc intel.Document) []Chunk {
	text := doc.BodyText
	if strings.TrimSpace(text) == "" {
		return nil
	}

	spans := c.splitSpans(text)
	chunks := make([]Chunk, 0, len(spans))
	for i, span := range spans {
		chunkText := text[span.start:span.end]
		keyTerms := extractKeyTerms(chunkText, doc.Organization)
		chunks = append(chunks, Chunk{
			DocumentID:    doc.ID,
			Index:         i,
			Text:          chunkText,
			CharStart:     span.start,
			CharEnd:       span.end,
			KeyTerms:      keyTerms,
			PriorityScore: scoreChunk(chunkText, doc.Organization, keyTerms),
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].PriorityScore != chunks[j].PriorityScore {
			return chunks[i].PriorityScore > chunks[j].PriorityScore
		}
		return chunks[i].Index < chunks[j].Index
	})

	if len(chunks) > c.maxChunks {
		chunks = chunks[:c.maxChunks]
	}
	return chunks
}

type span struct {
	start int
	end   int
}

func (c *Chunker) splitSpans(text string) []span {
	if len(text) <= c.targetSize {
		return []span{{start: 0, end: len(text)}}
	}

	spans := make([]span, 0, len(text)/c.targetSize+1)
	start := 0
	for start < len(text) {
		end := start + c.targetSize
		if end >= len(text) {
			spans = append(spans, span{start: start, end: len(text)})
			break
		}
		end = sentenceBoundary(text, end)
		spans = append(spans, span{start: start, end: end})

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// sentenceBoundary finds the sentence end nearest the target offset, searching
// a small window on both sides. Falls back to the target offset itself so a
// pathological sentence never stalls the split.
func sentenceBoundary(text string, target int) int {
	searchStart := target - boundarySearchRadius
	if searchStart < 1 {
		searchStart = 1
	}
	searchEnd := target + boundarySearchRadius
	if searchEnd > len(text)-1 {
		searchEnd = len(text) - 1
	}

	for i := searchStart; i < searchEnd; i++ {
		if !isSentenceEnd(text, i) {
			continue
		}
		return i + 1
	}
	return target
}

func isSentenceEnd(text string, i int) bool {
	switch text[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 >= len(text) {
		return true
	}
	switch text[i+1] {
	case ' ', '\n', '\t':
	default:
		return false
	}
	if i+2 >= len(text) {
		return true
	}
	next := text[i+2]
	return next >= 'A' && next <= 'Z'
}

func extractKeyTerms(text, organization string) []string {
	seen := map[string]struct{}{}
	terms := make([]string, 0, 8)

	add := func(term string) {
		normalized := strings.ToLower(strings.TrimSpace(term))
		if normalized == "" {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		terms = append(terms, normalized)
	}

	for _, m := range monetaryPattern.FindAllString(text, -1) {
		add(m)
	}
	lower := strings.ToLower(text)
	for _, variant := range intel.OrganizationVariants(organization) {
		if strings.Contains(lower, strings.ToLower(variant)) {
			add(variant)
		}
	}
	for _, m := range actionPattern.FindAllString(text, -1) {
		add(m)
	}
	return terms
}

func scoreChunk(text, organization string, keyTerms []string) float64 {
	score := keyTermWeight * float64(len(keyTerms))
	if monetaryPattern.MatchString(text) {
		score += monetaryWeight
	}
	if intel.MentionsOrganization(text, organization) {
		score += orgWeight
	}
	if actionPattern.MatchString(text) {
		score += actionWeight
	}
	return score
}
