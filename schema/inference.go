package schema

import (
	"fmt"
	"strings"
)

// TriageResult categorizes a chunk before any extraction call is spent on it.
type TriageResult struct {
	Category   string `json:"category"`
	IsRelevant bool   `json:"is_relevant"`
}

// FinancialEventResult is the structured output of financial-event extraction.
type FinancialEventResult struct {
	EventFound   bool     `json:"event_found"`
	ValueUSD     *float64 `json:"value_usd"`
	Headline     string   `json:"headline"`
	Summary      string   `json:"summary"`
	Confidence   string   `json:"confidence"`
	Organization string   `json:"organization"`
}

// ProcurementResult is the structured output of procurement-notice extraction.
type ProcurementResult struct {
	NoticeFound  bool     `json:"notice_found"`
	ValueUSD     *float64 `json:"value_usd"`
	Headline     string   `json:"headline"`
	Summary      string   `json:"summary"`
	Confidence   string   `json:"confidence"`
	Organization string   `json:"organization"`
}

// GuidanceResult is the structured output of forward-guidance extraction.
type GuidanceResult struct {
	GuidanceFound bool     `json:"guidance_found"`
	ValueUSD      *float64 `json:"value_usd"`
	Headline      string   `json:"headline"`
	Summary       string   `json:"summary"`
	Confidence    string   `json:"confidence"`
	Organization  string   `json:"organization"`
}

// Triage categories. "irrelevant" short-circuits further calls for the chunk.
const (
	CategoryFiling      = "filing"
	CategoryNews        = "news"
	CategoryProcurement = "procurement"
	CategoryIrrelevant  = "irrelevant"
)

func ParseTriageResult(raw string) (*TriageResult, error) {
	var result TriageResult
	if err := validateAgainst("triage.schema.json", []byte(StripFences(raw)), &result); err != nil {
		return nil, err
	}
	switch result.Category {
	case CategoryFiling, CategoryNews, CategoryProcurement, CategoryIrrelevant:
	default:
		return nil, fmt.Errorf("triage category %q is not recognized", result.Category)
	}
	return &result, nil
}

func ParseFinancialEventResult(raw string) (*FinancialEventResult, error) {
	var result FinancialEventResult
	if err := validateAgainst("financial_event.schema.json", []byte(StripFences(raw)), &result); err != nil {
		return nil, err
	}
	if err := validateExtraction(result.EventFound, result.ValueUSD, result.Headline); err != nil {
		return nil, err
	}
	return &result, nil
}

func ParseProcurementResult(raw string) (*ProcurementResult, error) {
	var result ProcurementResult
	if err := validateAgainst("procurement.schema.json", []byte(StripFences(raw)), &result); err != nil {
		return nil, err
	}
	if err := validateExtraction(result.NoticeFound, result.ValueUSD, result.Headline); err != nil {
		return nil, err
	}
	return &result, nil
}

func ParseGuidanceResult(raw string) (*GuidanceResult, error) {
	var result GuidanceResult
	if err := validateAgainst("forward_guidance.schema.json", []byte(StripFences(raw)), &result); err != nil {
		return nil, err
	}
	if err := validateExtraction(result.GuidanceFound, result.ValueUSD, result.Headline); err != nil {
		return nil, err
	}
	return &result, nil
}

func validateExtraction(found bool, valueUSD *float64, headline string) error {
	if !found {
		return nil
	}
	if strings.TrimSpace(headline) == "" {
		return fmt.Errorf("headline must not be empty when an event is reported")
	}
	if valueUSD != nil && *valueUSD < 0 {
		return fmt.Errorf("value_usd must not be negative")
	}
	return nil
}
