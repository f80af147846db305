package analyst

import (
	"fmt"
	"strings"

	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/intel"
)

func triagePrompt(doc intel.Document, chunk chunker.Chunk) string {
	return fmt.Sprintf(`You are triaging an excerpt of a document about %s.
Classify the excerpt and answer with a single JSON object, no prose:
{"category": "filing" | "news" | "procurement" | "irrelevant", "is_relevant": true | false}

"is_relevant" is true only when the excerpt describes a concrete business event
involving %s: a fine, penalty, acquisition, investment, contract award,
partnership, or material financial disclosure.

Document source: %s
Excerpt:
%s`, intel.DisplayName(doc.Organization), intel.DisplayName(doc.Organization), doc.SourceType, chunk.Text)
}

func financialPrompt(doc intel.Document, chunk chunker.Chunk) string {
	return fmt.Sprintf(`Extract the single most significant financial event about %s
from the excerpt below. Answer with one JSON object, no prose:
{"event_found": bool, "value_usd": number or null, "headline": string,
 "summary": string, "confidence": "low" | "medium" | "high", "organization": string}

Only report an event if it has a concrete dollar value of at least $10 million.
"value_usd" is the full amount in US dollars (e.g. $50 million is 50000000).
"headline" is one sentence; "summary" is two or three sentences of detail.
Key terms spotted in this excerpt: %s

Excerpt:
%s`, intel.DisplayName(doc.Organization), strings.Join(chunk.KeyTerms, ", "), chunk.Text)
}

func procurementPrompt(doc intel.Document, chunk chunker.Chunk) string {
	return fmt.Sprintf(`Extract a procurement or contract notice involving %s
from the excerpt below. Answer with one JSON object, no prose:
{"notice_found": bool, "value_usd": number or null, "headline": string,
 "summary": string, "confidence": "low" | "medium" | "high", "organization": string}

Report the contract value in US dollars when stated; use null when no value is
given. "headline" is one sentence; "summary" is two or three sentences.

Excerpt:
%s`, intel.DisplayName(doc.Organization), chunk.Text)
}

func guidancePrompt(doc intel.Document, chunk chunker.Chunk) string {
	return fmt.Sprintf(`Extract forward-looking guidance issued by %s from the
excerpt below: revenue outlook, planned spending, projected growth. Answer with
one JSON object, no prose:
{"guidance_found": bool, "value_usd": number or null, "headline": string,
 "summary": string, "confidence": "low" | "medium" | "high", "organization": string}

Only report guidance with a concrete dollar figure of at least $10 million.

Excerpt:
%s`, intel.DisplayName(doc.Organization), chunk.Text)
}
