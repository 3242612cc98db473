package main

import (
	"context"
	"fmt"

	"github.com/muhammadolammi/interviewworker/internal/llm"
)

const (
	defaultGeminiModel  = "gemini-2.5-pro"
	defaultOpenAIModel  = "gpt-4o"
	defaultGatewayModel = "gemini-2.5-pro"
)

// newProvider builds the streaming model client chosen by cfg.Provider and
// returns the model name requests should carry.
func newProvider(ctx context.Context, cfg LLMConfig) (llm.Provider, string, error) {
	switch cfg.Provider {
	case providerGemini, "":
		model := envDefault(cfg.GeminiModel, defaultGeminiModel)
		p, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.GoogleAPIKey, Model: model})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create gemini agent model: %w", err)
		}
		return p, model, nil
	case providerOpenAI:
		p, err := llm.NewOpenAICompatible(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return p, envDefault(cfg.OpenAIModel, defaultOpenAIModel), nil
	case providerGateway:
		p, err := llm.NewGateway(llm.GatewayConfig{
			URL:      cfg.GatewayURL,
			APIKey:   cfg.GatewayKey,
			Metadata: cfg.GatewayMetadata,
		})
		if err != nil {
			return nil, "", err
		}
		return p, envDefault(cfg.GatewayModel, defaultGatewayModel), nil
	}
	return nil, "", fmt.Errorf("unknown provider %q", cfg.Provider)
}

func envDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
