package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/airbot/pkg/log"
)

type LLMConfig struct {
	// anthropic | openai | openrouter | ollama | custom
	Provider string `env:"LLM_PROVIDER" envDefault:"openrouter"`
	Model    string `env:"LLM_MODEL" envDefault:"google/gemma-3-27b-it:free"`
	// IntentModel classifies routing intent. Empty means Model.
	IntentModel string `env:"LLM_INTENT_MODEL"`

	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`

	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	Temperature float32 `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	TopP        float32 `env:"LLM_TOP_P" envDefault:"0.9"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}

func (c LLMConfig) GetIntentModel() string {
	if c.IntentModel != "" {
		return c.IntentModel
	}
	return c.Model
}
