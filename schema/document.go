package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DocumentPayload is the v1 ingest contract supplied by the upstream
// extractors. The pipeline never fetches documents itself.
type DocumentPayload struct {
	PayloadVersion string  `json:"payload_version"`
	DocumentID     string  `json:"document_id"`
	SourceType     string  `json:"source_type"`
	Organization   string  `json:"organization"`
	Title          string  `json:"title"`
	BodyText       string  `json:"body_text"`
	PublishedAt    string  `json:"published_at"`
	OriginURL      *string `json:"origin_url,omitempty"`
}

var documentSourceTypes = map[string]struct{}{
	"filing":      {},
	"news":        {},
	"procurement": {},
}

func ValidateDocumentPayload(payload json.RawMessage) (*DocumentPayload, error) {
	var doc DocumentPayload
	if err := validateAgainst("document.schema.json", payload, &doc); err != nil {
		return nil, err
	}
	if err := validateDocumentSemantics(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validateDocumentSemantics(doc *DocumentPayload) error {
	if doc == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(doc.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(doc.DocumentID) == "" {
		return fmt.Errorf("document_id must not be empty")
	}
	if _, ok := documentSourceTypes[strings.TrimSpace(doc.SourceType)]; !ok {
		return fmt.Errorf("source_type %q is not one of filing, news, procurement", doc.SourceType)
	}
	if strings.TrimSpace(doc.Organization) == "" {
		return fmt.Errorf("organization must not be empty")
	}
	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(doc.PublishedAt)); err != nil {
		return fmt.Errorf("published_at must be RFC3339: %w", err)
	}
	if doc.OriginURL != nil {
		trimmed := strings.TrimSpace(*doc.OriginURL)
		if trimmed == "" {
			return fmt.Errorf("origin_url must not be empty")
		}
		if _, err := url.ParseRequestURI(trimmed); err != nil {
			return fmt.Errorf("origin_url is not a valid URI: %w", err)
		}
	}
	return nil
}
