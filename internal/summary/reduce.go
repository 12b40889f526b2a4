// Package summary turns arbitrarily long text into a single summary using a
// provider that only accepts bounded input.
package summary

import (
	"context"
	"errors"
	"strings"

	"papersum/internal/chunker"
)

// ErrInvalidChunkSize is returned when the chunk limit is not positive.
var ErrInvalidChunkSize = errors.New("max chunk size must be positive")

// SummarizeFunc summarizes text no longer than the configured limit.
type SummarizeFunc func(ctx context.Context, text string) (string, error)

// Reduce summarizes text with at most maxChunkSize characters per call.
//
// Text that fits is summarized once and returned verbatim. Longer text is cut
// into fixed-size windows, each summarized in order, one call at a time; the
// partial summaries are joined with newlines and summarized once more. The
// first failure is returned unchanged and stops all further calls.
func Reduce(ctx context.Context, text string, maxChunkSize int, summarizeOne SummarizeFunc) (string, error) {
	if maxChunkSize <= 0 {
		return "", ErrInvalidChunkSize
	}
	if chunker.Len(text) <= maxChunkSize {
		return summarizeOne(ctx, text)
	}

	chunks := chunker.Split(text, maxChunkSize)
	partials := make([]string, 0, len(chunks))
	for _, c := range chunks {
		partial, err := summarizeOne(ctx, c.Text)
		if err != nil {
			return "", err
		}
		partials = append(partials, partial)
	}
	return summarizeOne(ctx, strings.Join(partials, "\n"))
}
