// Package markdown reformats summaries as Markdown and writes them out as .md files.
package markdown

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Formatter turns a plain summary into tidy Markdown.
type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

// HTTPFormatter calls a formatting service at <baseURL>/format_markdown.
type HTTPFormatter struct {
	baseURL string
	client  *http.Client
}

const defaultFormatTimeout = 30 * time.Second

// NewHTTPFormatter creates a formatter; a nil client gets a default with timeout.
func NewHTTPFormatter(baseURL string, client *http.Client) *HTTPFormatter {
	if client == nil {
		client = &http.Client{Timeout: defaultFormatTimeout}
	}
	return &HTTPFormatter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type formatRequest struct {
	Markdown string `json:"markdown"`
}

type formatResponse struct {
	Formatted string `json:"formatted"`
}

// Format returns the service's output, or text unchanged when the service
// answers without a formatted field.
func (f *HTTPFormatter) Format(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(formatRequest{Markdown: text})
	if err != nil {
		return "", fmt.Errorf("marshal format request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/format_markdown", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create format request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("format request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("markdown formatter: unexpected status %d", resp.StatusCode)
	}
	var out formatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode format response: %w", err)
	}
	if out.Formatted == "" {
		return text, nil
	}
	return out.Formatted, nil
}

// FormatOrFallback never fails: any formatter error yields text unchanged.
// The bool reports whether formatting succeeded.
func FormatOrFallback(ctx context.Context, f Formatter, text string) (string, bool) {
	if f == nil {
		return text, false
	}
	out, err := f.Format(ctx, text)
	if err != nil {
		return text, false
	}
	return out, true
}
