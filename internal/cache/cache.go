package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Cache stores finished summaries so identical requests skip the summarizer.
type Cache interface {
	// GetSummary retrieves a cached summary by key.
	// Returns nil if not found.
	GetSummary(ctx context.Context, key string) (*Entry, error)

	// SetSummary stores a summary with TTL.
	SetSummary(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Close closes the cache connection.
	Close() error
}

// Entry is a cached summarization result.
type Entry struct {
	Text      string `json:"text"`
	Formatted bool   `json:"formatted"`
	Chunks    int    `json:"chunks"`
	Calls     int    `json:"calls"`
}

// GenerateKey derives a stable key from everything that affects the summary.
func GenerateKey(provider, model string, maxChars int, text string) string {
	h := sha256.New()
	for _, part := range []string{provider, model, strconv.Itoa(maxChars)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
