package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint       = "http://127.0.0.1:8833/v1/complete"
	DefaultRequestTimeout = 30 * time.Second
)

// Client calls the LLM inference service: prompt text in, completion text out.
// Structured parsing of the completion happens at the caller's boundary.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type HTTPClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Completion string `json:"completion"`
	Text       string `json:"text"`
	Choices    []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPClient{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: http.DefaultClient,
	}
}

func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completeRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal inference request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("inference service rate limited: %w", ErrTransient)
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("inference service status %d: %w", resp.StatusCode, ErrTransient)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("inference service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed completeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}

	switch {
	case strings.TrimSpace(parsed.Completion) != "":
		return parsed.Completion, nil
	case strings.TrimSpace(parsed.Text) != "":
		return parsed.Text, nil
	case len(parsed.Choices) > 0 && strings.TrimSpace(parsed.Choices[0].Message.Content) != "":
		return parsed.Choices[0].Message.Content, nil
	case len(parsed.Choices) > 0 && strings.TrimSpace(parsed.Choices[0].Text) != "":
		return parsed.Choices[0].Text, nil
	default:
		return "", fmt.Errorf("inference response missing completion text")
	}
}
