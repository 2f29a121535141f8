package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	ServerPort   string `env:"SERVER_PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DBMaxConns   int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	// RedisURL is optional; without it rate limiting and caching stay in process.
	RedisURL  string `env:"REDIS_URL"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	APIKeyName string `env:"API_KEY_NAME" envDefault:"GENSPARK_API_KEY"`
	APIName    string `env:"API_NAME" envDefault:"genspark-api"`
	// BootstrapAPIKey is registered as an active key at startup when set.
	BootstrapAPIKey string   `env:"BOOTSTRAP_API_KEY"`
	AllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"10"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	// Consecutive provider failures before the breaker opens.
	OpenAIFailureThreshold uint32        `env:"OPENAI_FAILURE_THRESHOLD" envDefault:"5"`
	OpenAIOpenTimeout      time.Duration `env:"OPENAI_OPEN_TIMEOUT" envDefault:"30s"`
	// CostPer1KTokens is a decimal string, e.g. "0.002".
	CostPer1KTokens    string        `env:"GENERATION_COST_PER_1K_TOKENS" envDefault:"0.002"`
	GenerationCacheTTL time.Duration `env:"GENERATION_CACHE_TTL" envDefault:"24h"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	CacheSize          int           `env:"CACHE_SIZE" envDefault:"4096"`

	// ReceiptSigningSecret signs integration receipts; an empty value gets a random
	// per-process secret.
	ReceiptSigningSecret string        `env:"RECEIPT_SIGNING_SECRET"`
	ReceiptTTL           time.Duration `env:"RECEIPT_TTL" envDefault:"720h"`

	HandlerTimeout  time.Duration `env:"HANDLER_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if _, err := decimal.NewFromString(c.CostPer1KTokens); err != nil {
		return fmt.Errorf("GENERATION_COST_PER_1K_TOKENS: %w", err)
	}
	if c.CacheSize <= 0 || c.MaxBodyBytes <= 0 {
		return fmt.Errorf("CACHE_SIZE and MAX_BODY_BYTES must be positive")
	}
	if strings.TrimSpace(c.APIKeyName) == "" {
		return fmt.Errorf("API_KEY_NAME must not be empty")
	}
	return nil
}

// TokenRate returns the configured generation price per 1000 tokens.
func (c *Config) TokenRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.CostPer1KTokens)
	return rate
}

func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
