package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	providerGemini  = "gemini"
	providerOpenAI  = "openai"
	providerGateway = "gateway"
)

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider string

	GoogleAPIKey string
	GeminiModel  string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	GatewayURL   string
	GatewayKey   string
	GatewayModel string

	// GatewayMetadata is sent with every gateway request, e.g. for
	// per-tenant usage tracking.
	GatewayMetadata map[string]any
}

// Config is everything the queue worker needs from the environment.
type Config struct {
	DBURL       string
	RabbitMQURL string
	R2          R2Config
	LLM         LLMConfig
	Workers     int
}

// requireEnv reads key and fails when it is empty.
func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("empty %s in environment", key)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadLLMConfig reads the provider settings. Only the key of the selected
// provider is required.
func loadLLMConfig() (LLMConfig, error) {
	cfg := LLMConfig{
		Provider:      strings.ToLower(envOr("LLM_PROVIDER", providerGemini)),
		GoogleAPIKey:  os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		GatewayKey:    os.Getenv("GATEWAY_API_KEY"),
		GatewayModel:  os.Getenv("GATEWAY_MODEL"),
	}

	if raw := os.Getenv("GATEWAY_METADATA"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.GatewayMetadata); err != nil {
			return LLMConfig{}, fmt.Errorf("invalid GATEWAY_METADATA: want a JSON object: %w", err)
		}
	}

	var err error
	switch cfg.Provider {
	case providerGemini:
		_, err = requireEnv("GOOGLE_API_KEY")
	case providerOpenAI:
		_, err = requireEnv("OPENAI_API_KEY")
	case providerGateway:
		if _, err = requireEnv("GATEWAY_URL"); err == nil {
			_, err = requireEnv("GATEWAY_API_KEY")
		}
	default:
		err = fmt.Errorf("unknown LLM_PROVIDER %q (want gemini, openai or gateway)", cfg.Provider)
	}
	if err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

// loadConfig reads the full worker configuration.
func loadConfig() (Config, error) {
	var cfg Config
	var err error

	if cfg.DBURL, err = requireEnv("DB_URL"); err != nil {
		return Config{}, err
	}
	if cfg.RabbitMQURL, err = requireEnv("RABBITMQ_URL"); err != nil {
		return Config{}, err
	}

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"R2_ACCCOUNT_ID", &cfg.R2.AccountID},
		{"R2_BUCKET", &cfg.R2.Bucket},
		{"R2_SECRET_KEY", &cfg.R2.SecretKey},
		{"R2_ACCESS_KEY", &cfg.R2.AccessKey},
	} {
		if *f.dst, err = requireEnv(f.key); err != nil {
			return Config{}, err
		}
	}

	if cfg.LLM, err = loadLLMConfig(); err != nil {
		return Config{}, err
	}

	cfg.Workers = 3
	if raw := os.Getenv("WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid WORKERS %q: want a positive integer", raw)
		}
		cfg.Workers = n
	}
	return cfg, nil
}
