// Package tokens estimates token counts for logging and metrics. Chunking
// itself is character based; these numbers are informational only.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding. A nil *Counter returns 0.
type Counter struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
}

// NewCounter loads the named encoding (cl100k_base when empty).
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Counter{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c == nil || c.encoding == nil || text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}
