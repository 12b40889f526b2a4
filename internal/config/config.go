package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the gateway, worker and CLI.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" or "sqlite"
	DBURL         string `env:"DB_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"papersum.db"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" or "none" (async summaries disabled)
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"86400"` // seconds

	// Summarization
	LLMProvider        string `env:"LLM_PROVIDER" envDefault:"gemini"` // "gemini", "openai" or "local"
	OpenAIKey          string `env:"OPENAI_API_KEY"`
	OpenAIModel        string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiKey          string `env:"GEMINI_API_KEY"`
	GeminiModel        string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	LocalSummarizerURL string `env:"LOCAL_SUMMARIZER_URL" envDefault:"http://localhost:5001/summarize"`
	MaxChars           int    `env:"MAX_CHARS" envDefault:"15000"`
	TokenEstimates     bool   `env:"TOKEN_ESTIMATES" envDefault:"true"`

	// Collaborators
	MarkdownFormatterURL string `env:"MARKDOWN_FORMATTER_URL"` // empty disables formatting
	ArxivMCPURL          string `env:"ARXIV_MCP_URL" envDefault:"http://localhost:8000"`
	ArxivAPIURL          string `env:"ARXIV_API_URL" envDefault:"http://export.arxiv.org/api/query"`

	// Retention
	PruneEnabled     bool          `env:"PRUNE_ENABLED" envDefault:"true"` // set false on all but one worker replica
	PruneSchedule    string        `env:"PRUNE_SCHEDULE" envDefault:"@daily"`
	SummaryRetention time.Duration `env:"SUMMARY_RETENTION" envDefault:"720h"`

	// Translation demo
	TranslateMinDelay time.Duration `env:"TRANSLATE_MIN_DELAY" envDefault:"2s"`
	TranslateMaxDelay time.Duration `env:"TRANSLATE_MAX_DELAY" envDefault:"5s"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
