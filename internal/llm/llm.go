package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Provider names accepted by LLM_PROVIDER and per-request overrides.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// ErrProviderUnavailable is returned when a provider is unknown or not configured.
var ErrProviderUnavailable = errors.New("summarization provider unavailable")

// summaryInstruction is shared by the remote providers.
const summaryInstruction = "Summarize the following text, covering the main points, methodology, results, conclusions, and any novelty or contributions."

// Client is a minimal summarization interface to allow pluggable providers.
// Summarize must accept any text up to the configured character limit.
type Client interface {
	Summarize(ctx context.Context, text string) (string, error)
	Name() string
	Model() string
}

// Registry holds the configured providers and the default choice.
type Registry struct {
	clients  map[string]Client
	fallback string
}

// NewRegistry builds a registry; defaultName must be one of the clients.
func NewRegistry(defaultName string, clients ...Client) (*Registry, error) {
	r := &Registry{clients: make(map[string]Client, len(clients)), fallback: defaultName}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	if _, ok := r.clients[defaultName]; !ok {
		return nil, fmt.Errorf("%w: default %q is not configured", ErrProviderUnavailable, defaultName)
	}
	return r, nil
}

// Get resolves a provider by name; empty selects the default.
func (r *Registry) Get(name string) (Client, error) {
	if name == "" {
		name = r.fallback
	}
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderUnavailable, name)
	}
	return c, nil
}

// Default returns the default provider name.
func (r *Registry) Default() string {
	return r.fallback
}

// Names lists configured providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
