// Package deeplx talks to a DeepLX endpoint, the self-hosted DeepL bridge used
// as the secondary subtitle translator.
package deeplx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubsync/internal/services"
)

const defaultTimeout = 30 * time.Second

// Client posts single texts to a DeepLX /translate endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient returns a client for endpoint. timeoutSeconds <= 0 uses 30s.
func NewClient(endpoint string, timeoutSeconds int, opts ...Option) *Client {
	timeout := defaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Code    int    `json:"code"`
	Data    string `json:"data"`
	Message string `json:"message"`
}

// Translate returns the translation of text. Codes are sent upper-cased the
// way DeepL expects them ("EN", "ZH"). The endpoint reports success through
// the body code, not the HTTP status, so a reply is accepted only when code
// is 200 and data is non-empty.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if c.endpoint == "" {
		return "", services.Wrap(services.ErrConfiguration, "deeplx", "translate", "endpoint not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "deeplx", "translate", "empty text", nil)
	}
	encoded, err := json.Marshal(translateRequest{
		Text:       text,
		SourceLang: strings.ToUpper(strings.TrimSpace(sourceLang)),
		TargetLang: strings.ToUpper(strings.TrimSpace(targetLang)),
	})
	if err != nil {
		return "", fmt.Errorf("deeplx: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("deeplx: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "deeplx", "translate", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "deeplx", "translate", "read body", err)
	}

	var decoded translateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "deeplx", "translate",
			fmt.Sprintf("decode response (status %d)", resp.StatusCode), err)
	}
	if decoded.Code != http.StatusOK || strings.TrimSpace(decoded.Data) == "" {
		marker := services.ErrExternalTool
		if decoded.Code == http.StatusTooManyRequests || decoded.Code >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "deeplx", "translate",
			fmt.Sprintf("code %d: %s", decoded.Code, strings.TrimSpace(decoded.Message)), nil)
	}
	return decoded.Data, nil
}

// HealthCheck translates a short probe to confirm the endpoint answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Translate(ctx, "hello", "EN", "DE")
	return err
}
