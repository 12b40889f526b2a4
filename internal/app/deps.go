package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"papersum/internal/arxiv"
	"papersum/internal/cache"
	"papersum/internal/config"
	"papersum/internal/httputil"
	"papersum/internal/llm"
	"papersum/internal/logger"
	"papersum/internal/markdown"
	"papersum/internal/metrics"
	"papersum/internal/queue"
	"papersum/internal/store"
	"papersum/internal/summary"
	"papersum/internal/tokens"
	"papersum/internal/translate"
)

// Deps bundles common runtime dependencies for the binaries.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Store      store.Store
	Queue      queue.Queue // nil when QUEUE_PROVIDER=none
	Cache      cache.Cache
	Summarizer *summary.Service
	Arxiv      *arxiv.Client
	Translator *translate.Translator
	Metrics    *metrics.Metrics
	Validator  *httputil.Validator

	closers []func() error
}

// Close releases connections in reverse order of creation.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadEnv reads .env when present; a missing file is fine.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// Build loads env, config and every shared component used by the gateway and worker.
func Build(ctx context.Context) (Deps, error) {
	if err := LoadEnv(); err != nil {
		return Deps{}, err
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	deps, err := BuildCore(ctx, cfg, log)
	if err != nil {
		return Deps{}, err
	}

	st, err := buildStore(ctx, cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.Store = st
	deps.closers = append(deps.closers, st.Close)

	q, nc, err := buildQueue(cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	if nc != nil {
		deps.closers = append(deps.closers, func() error { return nc.Drain() })
	}
	return deps, nil
}

// BuildCore wires everything that needs no database or broker: providers,
// cache, formatter, arXiv client and the translation demo. The CLI uses it directly.
func BuildCore(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, error) {
	m := metrics.New()

	registry, err := buildProviders(ctx, cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}

	opts := []summary.Option{
		summary.WithMaxChars(cfg.MaxChars),
		summary.WithCache(c, time.Duration(cfg.CacheTTL)*time.Second),
		summary.WithMetrics(m),
	}
	if cfg.MarkdownFormatterURL != "" {
		opts = append(opts, summary.WithFormatter(markdown.NewHTTPFormatter(cfg.MarkdownFormatterURL, nil)))
		log.Info("markdown formatting enabled", "url", cfg.MarkdownFormatterURL)
	}
	if cfg.TokenEstimates {
		if counter, err := tokens.NewCounter(""); err != nil {
			log.Warn("token estimates disabled", "err", err)
		} else {
			opts = append(opts, summary.WithTokenCounter(counter))
		}
	}

	tr, err := translate.NewDemo(cfg.TranslateMinDelay, cfg.TranslateMaxDelay)
	if err != nil {
		c.Close()
		return Deps{}, fmt.Errorf("failed to load translation demo: %w", err)
	}

	return Deps{
		Config:     cfg,
		Log:        log,
		Cache:      c,
		Summarizer: summary.NewService(log, registry, opts...),
		Arxiv:      arxiv.NewClient(cfg.ArxivMCPURL, cfg.ArxivAPIURL, nil, log),
		Translator: tr,
		Metrics:    m,
		Validator:  httputil.NewValidator(),
		closers:    []func() error{c.Close},
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "sqlite":
		db, err := store.NewSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("using SQLite store", "path", cfg.SQLitePath)
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, sqlite)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, *nats.Conn, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("papersum"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nc, nil
	case "none":
		log.Info("queue disabled; async summaries unavailable")
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: nats, none)", cfg.QueueProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		log.Info("using Redis summary cache", "addr", cfg.RedisAddr, "ttl_seconds", cfg.CacheTTL)
		return c, nil
	case "none", "":
		return cache.NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: redis, none)", cfg.CacheProvider)
	}
}

// buildProviders registers every provider whose credentials are present.
// The local summarizer needs none, so it is always available.
func buildProviders(ctx context.Context, cfg config.Config, log *slog.Logger) (*llm.Registry, error) {
	var clients []llm.Client

	if cfg.GeminiKey != "" {
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		clients = append(clients, c)
		log.Info("registered Gemini summarizer", "model", cfg.GeminiModel)
	}
	if cfg.OpenAIKey != "" {
		c, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.OpenAIModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		clients = append(clients, c)
		log.Info("registered OpenAI summarizer", "model", cfg.OpenAIModel)
	}
	local, err := llm.NewLocalClient(cfg.LocalSummarizerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local summarizer: %w", err)
	}
	clients = append(clients, local)

	registry, err := llm.NewRegistry(cfg.LLMProvider, clients...)
	if err != nil {
		return nil, fmt.Errorf("LLM_PROVIDER=%s: %w (is its API key set?)", cfg.LLMProvider, err)
	}
	log.Info("summarizer ready", "default", registry.Default(), "available", registry.Names())
	return registry, nil
}
