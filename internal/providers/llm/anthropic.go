package llm

import (
	"context"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
)

const anthropicVersion = "2023-06-01"

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
	}
}

func (a *Anthropic) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	system := req.System
	var messages []msg
	for _, m := range req.Messages {
		if m.Role == core.RoleSystem {
			system = strings.TrimSpace(system + "\n" + m.Content)
			continue
		}
		messages = append(messages, msg{Role: m.Role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if system != "" {
		payload["system"] = system
	}
	if req.TopP > 0 {
		payload["top_p"] = req.TopP
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := a.postJSON(ctx, "/v1/messages", payload, headers, &result); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return text.String(), nil
}
