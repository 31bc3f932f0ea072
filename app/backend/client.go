package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var _ Generator = (*Client)(nil)

var digitsRe = regexp.MustCompile(`\d+`)

// Client talks to an HTTP text-generation service exposing generate and
// count endpoints that accept a model name, a prompt and an optional JSON
// response schema.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model, userAgent string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		userAgent: userAgent,
		// No client-side timeout: the Caller owns the deadline, and an
		// abandoned worker should be able to finish on its own.
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Model            string          `json:"model"`
	Prompt           string          `json:"prompt"`
	ResponseMimeType string          `json:"response_mime_type,omitempty"`
	ResponseSchema   json.RawMessage `json:"response_schema,omitempty"`
	Temperature      float64         `json:"temperature"`
	MaxOutputTokens  int             `json:"max_output_tokens,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate posts the prompt and returns the raw response text. An HTTP
// error status is a transport failure; response content is never inspected
// here.
func (c *Client) Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error) {
	req := generateRequest{
		Model:           c.model,
		Prompt:          prompt,
		Temperature:     0.2,
		MaxOutputTokens: 8000,
	}
	if schema != nil {
		req.ResponseMimeType = "application/json"
		req.ResponseSchema = schema
	}

	var resp generateResponse
	if err := c.post(ctx, "/generate", req, &resp); err != nil {
		return "", err
	}

	return resp.Text, nil
}

// Count asks the service for a record count estimate and parses the first
// integer out of the reply, tolerating surrounding prose.
func (c *Client) Count(ctx context.Context, prompt string) (int, error) {
	req := generateRequest{
		Model:           c.model,
		Prompt:          prompt,
		Temperature:     0.1,
		MaxOutputTokens: 20,
	}

	var resp generateResponse
	if err := c.post(ctx, "/generate", req, &resp); err != nil {
		return 0, err
	}

	match := digitsRe.FindString(resp.Text)
	if match == "" {
		return 0, fmt.Errorf("count response contains no number: %q", strings.TrimSpace(resp.Text))
	}

	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("failed to parse count %q: %w", match, err)
	}

	return n, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
