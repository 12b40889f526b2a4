package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache never stores anything
func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()
	ctx := context.Background()

	result, err := cache.GetSummary(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result (cache miss), got %v", result)
	}

	err = cache.SetSummary(ctx, "test-key", &Entry{Text: "summary", Chunks: 2, Calls: 3}, time.Hour)
	if err != nil {
		t.Errorf("Expected no error on SetSummary, got %v", err)
	}

	result, err = cache.GetSummary(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result (no-op cache doesn't store), got %v", result)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	base := GenerateKey("gemini", "gemini-2.5-flash", 15000, "text")

	if base != GenerateKey("gemini", "gemini-2.5-flash", 15000, "text") {
		t.Error("expected identical inputs to produce identical keys")
	}
	if len(base) != 64 {
		t.Errorf("expected hex sha256 key, got %q", base)
	}

	variants := []string{
		GenerateKey("openai", "gemini-2.5-flash", 15000, "text"),
		GenerateKey("gemini", "gemini-2.5-pro", 15000, "text"),
		GenerateKey("gemini", "gemini-2.5-flash", 10000, "text"),
		GenerateKey("gemini", "gemini-2.5-flash", 15000, "text!"),
		// Field boundaries must not be ambiguous.
		GenerateKey("gemin", "igemini-2.5-flash", 15000, "text"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key", i)
		}
	}
}
