package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/log"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	repositoryURL     = "https://github.com/sandevgo/airbot"
)

// NewCompleter creates the Completer for the configured provider and
// the given model.
func NewCompleter(ctx context.Context, cfg *config.LLMConfig, model string) (core.Completer, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: model}), nil
	case "anthropic":
		return NewAnthropic(cfg.AnthropicAPIKey, model), nil
	case "openrouter":
		return NewOpenAI(OpenAIConfig{
			BaseURL: openRouterBaseURL,
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   model,
			Headers: map[string]string{
				"HTTP-Referer": repositoryURL,
				"X-Title":      core.AppName,
			},
		}), nil
	case "ollama":
		return NewOpenAI(OpenAIConfig{BaseURL: cfg.OllamaBaseURL, APIKey: cfg.OllamaAPIKey, Model: model}), nil
	case "custom":
		if cfg.CustomOpenAIBaseURL == "" {
			return nil, fmt.Errorf("custom llm provider needs CUSTOM_OPENAI_BASE_URL")
		}
		return NewOpenAI(OpenAIConfig{BaseURL: cfg.CustomOpenAIBaseURL, APIKey: cfg.CustomOpenAIAPIKey, Model: model}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
