package arxiv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"papersum/internal/retry"
)

var (
	ErrDownloadFailed = errors.New("arxiv: paper download failed")
	ErrReadFailed     = errors.New("arxiv: paper read failed")
	ErrNoContent      = errors.New("arxiv: paper has no content")
	ErrNotFound       = errors.New("arxiv: paper not found")
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// Metadata is the subset of the arXiv Atom entry the service keeps.
type Metadata struct {
	ID       string
	Title    string
	Authors  []string
	Abstract string
}

// Client talks to the arxiv-mcp bridge for full text and the arXiv API for metadata.
type Client struct {
	mcpURL   string
	apiURL   string
	http     *http.Client
	log      *slog.Logger
	attempts int
	backoff  time.Duration
}

func NewClient(mcpURL, apiURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		mcpURL:   strings.TrimRight(mcpURL, "/"),
		apiURL:   apiURL,
		http:     httpClient,
		log:      log,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

type readResponse struct {
	Content string `json:"content"`
}

// FetchContent returns the paper text, asking the bridge to download it first
// when a direct read comes back empty.
func (c *Client) FetchContent(ctx context.Context, id string) (string, error) {
	if content, err := c.readPaper(ctx, id); err == nil && content != "" {
		return content, nil
	} else if err != nil {
		c.log.Debug("direct read failed; downloading", "arxiv_id", id, "err", err)
	}

	if err := c.downloadPaper(ctx, id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	content, err := c.readPaper(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if content == "" {
		return "", ErrNoContent
	}
	c.log.Info("fetched arXiv paper", "arxiv_id", id, "bytes", len(content))
	return content, nil
}

func (c *Client) readPaper(ctx context.Context, id string) (string, error) {
	endpoint := c.mcpURL + "/read_paper?paper_id=" + url.QueryEscape(id)
	var out readResponse
	err := retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		body, err := c.do(req, "read_paper")
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &out)
	})
	return out.Content, err
}

func (c *Client) downloadPaper(ctx context.Context, id string) error {
	payload, err := json.Marshal(map[string]string{"paper_id": id})
	if err != nil {
		return err
	}
	return retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mcpURL+"/download_paper", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		_, err = c.do(req, "download_paper")
		return err
	})
}

// FetchMetadata looks the paper up in the arXiv Atom API.
func (c *Client) FetchMetadata(ctx context.Context, id string) (Metadata, error) {
	query := url.Values{}
	query.Set("id_list", id)
	endpoint := fmt.Sprintf("%s?%s", c.apiURL, query.Encode())

	var feed *gofeed.Feed
	err := retry.Do(ctx, c.attempts, c.backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		body, err := c.do(req, "query")
		if err != nil {
			return err
		}
		feed, err = gofeed.NewParser().Parse(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("arxiv: failed to parse feed: %w", err)
		}
		return nil
	})
	if err != nil {
		return Metadata{}, err
	}
	if len(feed.Items) == 0 || strings.TrimSpace(feed.Items[0].Title) == "" {
		return Metadata{}, ErrNotFound
	}

	item := feed.Items[0]
	meta := Metadata{
		ID:       id,
		Title:    strings.Join(strings.Fields(item.Title), " "),
		Abstract: strings.TrimSpace(item.Description),
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			meta.Authors = append(meta.Authors, strings.TrimSpace(a.Name))
		}
	}
	return meta, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &retry.StatusError{Op: "arxiv " + op, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv %s: failed to read response: %w", op, err)
	}
	return body, nil
}
