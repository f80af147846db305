package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultRequestTimeout = 15 * time.Second

// ErrUnavailable marks search failures the validator can degrade on: quota
// exhaustion, upstream outages, timeouts. External validation is then skipped
// for the event rather than failing the run.
var ErrUnavailable = errors.New("search service unavailable")

// Result is one hit from the external search index.
type Result struct {
	Title       string
	Snippet     string
	URL         string
	PublishedAt time.Time
}

// Client queries an external web search index for corroborating coverage.
type Client interface {
	Search(ctx context.Context, query string, recencyDays int) ([]Result, error)
}

type HTTPClient struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

type searchResponse struct {
	Results []struct {
		Title       string `json:"title"`
		Snippet     string `json:"snippet"`
		URL         string `json:"url"`
		PublishedAt string `json:"published_at"`
	} `json:"results"`
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPClient{
		endpoint:   strings.TrimSpace(endpoint),
		apiKey:     strings.TrimSpace(apiKey),
		timeout:    timeout,
		httpClient: http.DefaultClient,
	}
}

func (c *HTTPClient) Search(ctx context.Context, query string, recencyDays int) ([]Result, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no search endpoint configured: %w", ErrUnavailable)
	}

	params := url.Values{}
	params.Set("q", query)
	if recencyDays > 0 {
		params.Set("recency_days", strconv.Itoa(recencyDays))
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || requestCtx.Err() != nil {
			return nil, fmt.Errorf("search request timed out: %w", ErrUnavailable)
		}
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("search quota exhausted, status %d: %w", resp.StatusCode, ErrUnavailable)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("search service status %d: %w", resp.StatusCode, ErrUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("search service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, row := range parsed.Results {
		result := Result{
			Title:   row.Title,
			Snippet: row.Snippet,
			URL:     row.URL,
		}
		if row.PublishedAt != "" {
			if ts, err := time.Parse(time.RFC3339, row.PublishedAt); err == nil {
				result.PublishedAt = ts
			}
		}
		results = append(results, result)
	}
	return results, nil
}
