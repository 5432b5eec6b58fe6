// Package client sends a single prompt to a chat-completion endpoint and
// turns the reply into display text.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"llm-client/internal/config"
	"llm-client/internal/models"
)

const (
	contentTypeJSON  = "application/json"
	userAgent        = "llm-client/0.1"
	maxErrorBytes    = 64 * 1024
	maxResponseBytes = 8 << 20
	previewRunes     = 100
)

// Client posts chat requests using one resolved configuration. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	settings config.Settings
	http     *http.Client
}

// New constructs a client. A missing API key is accepted; the server will
// reject the request.
func New(settings config.Settings, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(settings.Endpoint) == "" {
		return nil, errors.New("endpoint must not be empty")
	}

	return &Client{
		settings: settings,
		http:     httpClient,
	}, nil
}

// BuildRequest assembles the JSON body for prompt, applying params over the
// client defaults. The prompt is sent as-is.
func (c *Client) BuildRequest(prompt string, params models.Params) models.ChatRequest {
	req := models.ChatRequest{
		Model: c.settings.Model,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: prompt},
		},
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	}
	if params.Model != "" {
		req.Model = params.Model
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	return req
}

// Send issues one POST and returns the decoded envelope or a Failure. It
// never retries.
func (c *Client) Send(ctx context.Context, prompt string, params models.Params) Result {
	payload := c.BuildRequest(prompt, params)

	httpReq, err := c.newRequest(ctx, payload)
	if err != nil {
		return failed(FailureRequest, 0, err.Error(), nil)
	}

	slog.Info("sending request",
		"endpoint", c.settings.Endpoint,
		"model", payload.Model,
		"prompt", Preview(prompt),
	)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Warn("chat request failed", "endpoint", c.settings.Endpoint, "err", err)
		return failed(FailureTransport, 0, err.Error(), nil)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return c.statusFailure(httpResp)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return failed(FailureTransport, httpResp.StatusCode, fmt.Sprintf("read response body: %v", err), nil)
	}

	envelope, err := decodeEnvelope(body)
	if err != nil {
		slog.Warn("chat response not decodable", "status", httpResp.StatusCode, "err", err)
		return failed(FailureDecode, httpResp.StatusCode, err.Error(), body)
	}

	slog.Debug("chat response received", "status", httpResp.StatusCode, "bytes", len(body))
	return Result{
		StatusCode: httpResp.StatusCode,
		Payload:    envelope,
		Raw:        body,
	}
}

// Chat sends prompt and returns the reply text, or a formatted error string.
func (c *Client) Chat(ctx context.Context, prompt string, params models.Params) string {
	return Extract(c.Send(ctx, prompt, params))
}

func (c *Client) newRequest(ctx context.Context, payload models.ChatRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)

	for k, v := range c.settings.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (c *Client) statusFailure(resp *http.Response) Result {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes+1))
	message := fmt.Sprintf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), c.settings.Endpoint)
	if err != nil {
		message = fmt.Sprintf("%s (failed to read body: %v)", message, err)
	}

	truncated := len(body) > maxErrorBytes
	if truncated {
		body = body[:maxErrorBytes]
		message = fmt.Sprintf("%s (response body truncated to %d bytes)", message, maxErrorBytes)
	}

	slog.Warn("chat request rejected", "status", resp.StatusCode, "endpoint", c.settings.Endpoint)
	res := failed(FailureStatus, resp.StatusCode, message, body)
	res.Failure.Truncated = truncated
	return res
}

func decodeEnvelope(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var envelope map[string]any
	if err := decoder.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope == nil {
		return nil, errors.New("decode response: body is not a JSON object")
	}
	return envelope, nil
}

// Preview shortens s to 100 runes, marking the cut with "...".
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewRunes]) + "..."
}
