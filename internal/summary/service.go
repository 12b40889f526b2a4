package summary

import (
	"context"
	"log/slog"
	"time"

	"papersum/internal/cache"
	"papersum/internal/chunker"
	"papersum/internal/llm"
	"papersum/internal/markdown"
	"papersum/internal/metrics"
	"papersum/internal/tokens"
)

// DefaultMaxChars bounds the input of a single summarizer call.
const DefaultMaxChars = 15000

// Request selects a provider (empty means default) and the text to summarize.
type Request struct {
	Provider string
	Text     string
}

// Result is the final summary plus bookkeeping about how it was produced.
type Result struct {
	Text      string
	Provider  string
	Model     string
	Chunks    int // 0 when the text fit in a single call
	Calls     int
	Formatted bool
	Cached    bool
}

// Service wires a provider registry to the reducer, the formatter and the cache.
type Service struct {
	providers *llm.Registry
	log       *slog.Logger
	maxChars  int
	formatter markdown.Formatter
	cache     cache.Cache
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
	tokens    *tokens.Counter
}

// Option configures a Service.
type Option func(*Service)

func WithMaxChars(n int) Option { return func(s *Service) { s.maxChars = n } }

func WithFormatter(f markdown.Formatter) Option { return func(s *Service) { s.formatter = f } }

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) { s.cache, s.cacheTTL = c, ttl }
}

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithTokenCounter(c *tokens.Counter) Option { return func(s *Service) { s.tokens = c } }

// NewService builds a Service with DefaultMaxChars and no formatter or cache.
func NewService(log *slog.Logger, providers *llm.Registry, opts ...Option) *Service {
	s := &Service{
		providers: providers,
		log:       log,
		maxChars:  DefaultMaxChars,
		cache:     cache.NewNoOpCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Providers exposes the registry for listing and validation.
func (s *Service) Providers() *llm.Registry {
	return s.providers
}

// Summarize produces the final summary for req. Provider failures are returned
// unchanged; callers classify them with Classify.
func (s *Service) Summarize(ctx context.Context, req Request) (Result, error) {
	client, err := s.providers.Get(req.Provider)
	if err != nil {
		return Result{}, err
	}
	res := Result{Provider: client.Name(), Model: client.Model()}
	log := s.log.With("provider", res.Provider, "model", res.Model)

	key := cache.GenerateKey(res.Provider, res.Model, s.maxChars, req.Text)
	if entry, err := s.cache.GetSummary(ctx, key); err != nil {
		log.Warn("summary cache lookup failed", "err", err)
	} else if entry != nil {
		s.metrics.CacheHit()
		log.Info("summary cache hit")
		res.Text, res.Formatted, res.Chunks, res.Calls, res.Cached = entry.Text, entry.Formatted, entry.Chunks, entry.Calls, true
		return res, nil
	}

	chars := chunker.Len(req.Text)
	if chars > s.maxChars {
		res.Chunks = (chars + s.maxChars - 1) / s.maxChars
	}
	log.Info("summarizing", "chars", chars, "chunks", res.Chunks, "est_tokens", s.tokens.Count(req.Text))

	start := time.Now()
	text, err := Reduce(ctx, req.Text, s.maxChars, func(ctx context.Context, in string) (string, error) {
		res.Calls++
		callStart := time.Now()
		out, err := client.Summarize(ctx, in)
		s.metrics.ObserveCall(res.Provider, time.Since(callStart))
		log.Debug("summarizer call", "call", res.Calls, "chars", chunker.Len(in), "err", err)
		return out, err
	})
	s.metrics.ObserveSummary(res.Provider, res.Chunks, err)
	if err != nil {
		kind := Classify(err)
		s.metrics.ObserveFailure(kind.String())
		log.Error("summarization failed", "err", err, "kind", kind.String(), "calls", res.Calls)
		return Result{}, err
	}

	res.Text, res.Formatted = markdown.FormatOrFallback(ctx, s.formatter, text)
	if s.formatter != nil && !res.Formatted {
		s.metrics.FormatFallback()
		log.Warn("markdown formatting failed; returning unformatted summary")
	}

	if err := s.cache.SetSummary(ctx, key, &cache.Entry{
		Text:      res.Text,
		Formatted: res.Formatted,
		Chunks:    res.Chunks,
		Calls:     res.Calls,
	}, s.cacheTTL); err != nil {
		log.Warn("failed to cache summary", "err", err)
	}

	log.Info("summary ready", "calls", res.Calls, "formatted", res.Formatted, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}
