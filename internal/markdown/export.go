package markdown

import (
	"fmt"
	"os"
	"path/filepath"
)

// ContentType is used for summary downloads.
const ContentType = "text/markdown; charset=utf-8"

// FileName returns the download name for a summary base name.
func FileName(base string) string {
	if base == "" {
		base = "summary"
	}
	return base + ".md"
}

// WriteFile saves content as <dir>/<base>.md and returns the path.
func WriteFile(dir, base, content string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(filepath.Base(base)))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}
