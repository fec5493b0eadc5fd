package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	LogLevel        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ClaudeModel     string
	OpenAIModel     string
}

func Load() Config {
	return Config{
		Port:            envInt("RECAP_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		ClaudeModel:     envStr("RECAP_CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		OpenAIModel:     envStr("RECAP_OPENAI_MODEL", "gpt-4o"),
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
