package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	FrontendURL string
	LogLevel    slog.Level

	LLMProvider     string
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicKey    string
	AnthropicModel  string
	TaxonomyFile    string
	RefreshInterval time.Duration
	CacheTTL        time.Duration

	FinnhubKey      string
	AlphaVantageKey string
	MassiveKey      string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		Port:            getenv("PORT", "8080"),
		FrontendURL:     os.Getenv("FRONTEND_URL"),
		LLMProvider:     strings.ToLower(getenv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		TaxonomyFile:    os.Getenv("NARRATIVE_TAXONOMY_FILE"),
		FinnhubKey:      os.Getenv("FINNHUB_API_KEY"),
		AlphaVantageKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		MassiveKey:      os.Getenv("MASSIVE_API_KEY"),
	}

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LLMProvider != ProviderOpenAI && cfg.LLMProvider != ProviderAnthropic {
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
		}
		cfg.RefreshInterval = d
	}

	cfg.CacheTTL = 5 * time.Minute
	if v := os.Getenv("NARRATIVE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NARRATIVE_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}

	return cfg, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
}

// NewLogger builds the JSON logger every binary installs as the default.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
