package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls Google's Gemini API through the genai SDK.
type GeminiClient struct {
	model  string
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed summarizer.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{model: model, client: client}, nil
}

func (c *GeminiClient) Name() string  { return ProviderGemini }
func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) Summarize(ctx context.Context, text string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil gemini client")
	}
	// Errors are returned as-is: their messages ("API key not valid", "quota")
	// drive classification upstream.
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(buildPrompt(text)), nil)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return out, nil
}

func buildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(summaryInstruction) + len(text) + 16)
	b.WriteString(summaryInstruction)
	b.WriteString("\n\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")
	return b.String()
}
