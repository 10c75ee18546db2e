package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	LogLevel    string
	APIToken    string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	// Business constants with no stated upstream justification, kept
	// configurable rather than hard-coded.
	RateLimitPerMinute int
	MaxConcurrentJobs  int
	BlackoutWeekday    time.Weekday
}

func Load() Config {
	return Config{
		Port:            envInt("SIAMOON_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		APIToken:        envStr("SIAMOON_API_TOKEN", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("SIAMOON_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIModel:     envStr("SIAMOON_OPENAI_MODEL", "gpt-4o-mini"),

		RateLimitPerMinute: envInt("SIAMOON_RATE_LIMIT_PER_MIN", 10),
		MaxConcurrentJobs:  envInt("SIAMOON_MAX_CONCURRENT_JOBS", 3),
		BlackoutWeekday:    envWeekday("SIAMOON_BLACKOUT_WEEKDAY", time.Sunday),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envWeekday(key string, fallback time.Weekday) time.Weekday {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == v {
			return d
		}
	}
	return fallback
}
