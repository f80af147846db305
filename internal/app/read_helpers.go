package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ridge.run/sentinel/internal/globaltime"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/schema"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func defaultUTCDayString() string {
	now := globaltime.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func parseUTCDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be YYYY-MM-DD")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseUTCDateRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	fromDay, err := parseUTCDate(fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
	}
	toDay, err := parseUTCDate(toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
	}
	if toDay.Before(fromDay) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be <= --to")
	}
	return fromDay, toDay.Add(24 * time.Hour), nil
}

// readDocumentFile loads and validates one document payload from disk.
func readDocumentFile(path string) (intel.Document, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return intel.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	parsed, err := schema.ValidateDocumentPayload(payload)
	if err != nil {
		return intel.Document{}, fmt.Errorf("validate %s: %w", path, err)
	}

	publishedAt, err := time.Parse(time.RFC3339, parsed.PublishedAt)
	if err != nil {
		return intel.Document{}, fmt.Errorf("parse published_at in %s: %w", path, err)
	}

	slug := intel.CanonicalOrganization(parsed.Organization)
	if slug == "" {
		return intel.Document{}, fmt.Errorf("%s: organization %q is not monitored", path, parsed.Organization)
	}

	doc := intel.Document{
		ID:           parsed.DocumentID,
		SourceType:   intel.SourceType(parsed.SourceType),
		Organization: slug,
		Title:        parsed.Title,
		BodyText:     parsed.BodyText,
		PublishedAt:  publishedAt.UTC(),
	}
	if parsed.OriginURL != nil {
		doc.OriginURL = *parsed.OriginURL
	}
	return doc, nil
}
