package core

import "context"

type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Completer is the opaque LLM service: prompt in, text out.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// UserPrompt builds a single user-turn request.
func UserPrompt(prompt string, maxTokens int, temperature, topP float32) CompletionRequest {
	return CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}
}
