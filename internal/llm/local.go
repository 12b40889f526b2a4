package llm

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

// LocalClient posts text to a self-hosted summarization endpoint.
//
// Request:  {"text": "..."}
// Response: {"summary": "..."} or {"text": "..."}
type LocalClient struct {
	endpoint string
	client   *http.Client
}

const defaultLocalTimeout = 5 * time.Minute

// NewLocalClient creates a client for endpoint; a nil httpClient gets a default with timeout.
func NewLocalClient(endpoint string, httpClient *http.Client) (*LocalClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("local summarizer endpoint required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultLocalTimeout}
	}
	return &LocalClient{endpoint: endpoint, client: httpClient}, nil
}

func (c *LocalClient) Name() string  { return ProviderLocal }
func (c *LocalClient) Model() string { return c.endpoint }

type localRequest struct {
	Text string `json:"text"`
}

type localResponse struct {
	Summary string `json:"summary"`
	Text    string `json:"text"`
}

func (c *LocalClient) Summarize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(localRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal local request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create local request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local summarizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("local summarizer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out localResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode local response: %w", err)
	}
	if out.Summary != "" {
		return out.Summary, nil
	}
	return out.Text, nil
}
