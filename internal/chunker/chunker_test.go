package chunker

import (
	"sort"
	"strings"
	"testing"

	"ridge.run/sentinel/internal/intel"
)

func testDocument(body string) intel.Document {
	return intel.Document{
		ID:           "doc-1",
		SourceType:   intel.SourceFiling,
		Organization: "Capital_One",
		Title:        "Quarterly report",
		BodyText:     body,
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	t.Parallel()

	c := New(3000, 500, 10)
	if got := c.Split(testDocument("")); got != nil {
		t.Fatalf("expected nil chunks for empty body, got %d", len(got))
	}
	if got := c.Split(testDocument("   \n\t  ")); got != nil {
		t.Fatalf("expected nil chunks for whitespace body, got %d", len(got))
	}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	t.Parallel()

	c := New(3000, 500, 10)
	chunks := c.Split(testDocument("Capital One announces a $25 million partnership."))
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].CharStart != 0 || chunks[0].CharEnd != len("Capital One announces a $25 million partnership.") {
		t.Fatalf("unexpected span: [%d, %d)", chunks[0].CharStart, chunks[0].CharEnd)
	}
}

func TestSplitCoversEntireText(t *testing.T) {
	t.Parallel()

	sentence := "The board reviewed routine operational matters during the period. "
	body := strings.Repeat(sentence, 120) // ~7.9k chars

	c := New(3000, 500, 10)
	chunks := c.Split(testDocument(body))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].CharStart < chunks[j].CharStart })
	if chunks[0].CharStart != 0 {
		t.Fatalf("coverage must start at 0, got %d", chunks[0].CharStart)
	}
	covered := chunks[0].CharEnd
	for _, ch := range chunks[1:] {
		if ch.CharStart > covered {
			t.Fatalf("coverage gap before offset %d (covered to %d)", ch.CharStart, covered)
		}
		if ch.CharEnd > covered {
			covered = ch.CharEnd
		}
	}
	if covered != len(body) {
		t.Fatalf("coverage ends at %d, want %d", covered, len(body))
	}
}

func TestSplitOverlapContainsBoundarySentences(t *testing.T) {
	t.Parallel()

	sentence := "Revenue grew in line with expectations across all segments this quarter. "
	body := strings.Repeat(sentence, 100)

	c := New(3000, 500, 10)
	chunks := c.Split(testDocument(body))
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].CharStart < chunks[j].CharStart })

	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].CharEnd - chunks[i].CharStart
		if chunks[i-1].CharEnd == len(body) {
			continue
		}
		if overlap < len(sentence) {
			t.Fatalf("chunks %d/%d overlap by %d chars, want at least one sentence (%d)",
				i-1, i, overlap, len(sentence))
		}
	}
}

// A monetary mention buried in the tail of the document must survive chunking:
// this is the property that makes late-document events detectable at all.
func TestMonetaryMentionInTailIsChunked(t *testing.T) {
	t.Parallel()

	filler := strings.Repeat("Management discussed routine compliance topics at length. ", 95) // ~5.5k
	tail := "Separately, Capital One agreed to pay a $50 million fine related to the matter."
	body := filler + tail

	c := New(3000, 500, 10)
	chunks := c.Split(testDocument(body))

	found := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, "$50 million") {
			found = true
			if ch.PriorityScore <= chunks[len(chunks)-1].PriorityScore && len(chunks) > 1 {
				// the monetary chunk must rank at least as high as the weakest chunk
				t.Fatalf("monetary chunk scored %f, below weakest %f",
					ch.PriorityScore, chunks[len(chunks)-1].PriorityScore)
			}
		}
	}
	if !found {
		t.Fatalf("no chunk contains the tail monetary mention")
	}
}

func TestPriorityOrderingAndCap(t *testing.T) {
	t.Parallel()

	quiet := strings.Repeat("Background narrative with no monitored signals whatsoever here. ", 48)
	hot := "Capital One announces a $90 million acquisition agreement. " +
		strings.Repeat("Additional detail follows in the filing. ", 70)
	body := quiet + hot + quiet + quiet

	c := New(1000, 200, 3)
	chunks := c.Split(testDocument(body))
	if len(chunks) != 3 {
		t.Fatalf("expected cap of 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].PriorityScore > chunks[i-1].PriorityScore {
			t.Fatalf("chunks not sorted by descending priority at %d", i)
		}
	}
	if !strings.Contains(chunks[0].Text, "$90 million") {
		t.Fatalf("highest-priority chunk does not contain the monetary mention")
	}
}

func TestExtractKeyTerms(t *testing.T) {
	t.Parallel()

	text := "Capital One announces a $25 million investment; the investment closes in Q3."
	terms := extractKeyTerms(text, "Capital_One")

	wantSubstrings := []string{"$25 million", "capital one", "announce"}
	for _, want := range wantSubstrings {
		found := false
		for _, term := range terms {
			if strings.Contains(term, want) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("key terms %v missing %q", terms, want)
		}
	}

	// deduplicated: "investment" appears twice in the text but once in terms
	count := 0
	for _, term := range terms {
		if term == "investment" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one deduplicated 'investment' term, got %d", count)
	}
}
