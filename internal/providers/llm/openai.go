package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sashabaranov/go-openai"
)

// OpenAI serves every OpenAI-compatible endpoint: OpenAI itself,
// OpenRouter, Ollama and custom base URLs.
type OpenAI struct {
	client *openai.Client
	model  string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Headers are added to every request, e.g. OpenRouter attribution.
	Headers map[string]string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	c.HTTPClient = &http.Client{
		Timeout:   120 * time.Second,
		Transport: &headerTransport{headers: cfg.Headers, next: http.DefaultTransport},
	}
	return &OpenAI{client: openai.NewClientWithConfig(c), model: cfg.Model}
}

func (o *OpenAI) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	creq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if req.MaxTokens > 0 {
		creq.MaxCompletionTokens = req.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", core.AppUserAgent)
	return t.next.RoundTrip(req)
}
