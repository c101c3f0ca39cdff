package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropic_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"안녕"},{"type":"text","text":"하세요"}]}`))
	}))
	defer srv.Close()

	a := &Anthropic{baseProvider: newBaseProvider(srv.URL, "key", "claude-test")}
	req := core.UserPrompt("hi", 256, 0.2, 0.9)
	req.System = "be brief"

	out, err := a.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", out)
	assert.Equal(t, "claude-test", got["model"])
	assert.Equal(t, "be brief", got["system"])
	assert.EqualValues(t, 256, got["max_tokens"])
}

func TestAnthropic_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := &Anthropic{baseProvider: newBaseProvider(srv.URL, "key", "m")}
	_, err := a.Complete(context.Background(), core.UserPrompt("hi", 0, 0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 503")
}

func TestAnthropic_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad model"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	a := &Anthropic{baseProvider: newBaseProvider(srv.URL, "key", "m")}
	r := retry.NewRetrier(&retry.Config{MaxRetries: 3, BackoffFactor: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
	_, err := Instrument(a, "answer", r).Complete(context.Background(), core.UserPrompt("hi", 0, 0, 0))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.False(t, se.Retryable())
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAI_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "airbot", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"24.3도입니다"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "key", Model: "m1", Headers: map[string]string{"X-Title": "airbot"}})
	req := core.UserPrompt("온도?", 128, 0.2, 0.9)
	req.System = "sys"

	out, err := o.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "24.3도입니다", out)
	assert.Equal(t, "m1", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"}).Complete(context.Background(), core.UserPrompt("x", 0, 0, 0))
	assert.Error(t, err)
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"anthropic", false},
		{"openrouter", false},
		{"ollama", false},
		{"custom", true},
		{"gemini", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			_, err := NewCompleter(context.Background(), &config.LLMConfig{Provider: tt.provider}, "m")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type flaky struct {
	calls atomic.Int32
	fail  int32
}

func (f *flaky) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if f.calls.Add(1) <= f.fail {
		return "", errors.New("temporary")
	}
	return "ok", nil
}

func TestInstrumented_Retries(t *testing.T) {
	f := &flaky{fail: 2}
	r := retry.NewRetrier(&retry.Config{MaxRetries: 3, BackoffFactor: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	out, err := Instrument(f, "answer", r).Complete(context.Background(), core.UserPrompt("x", 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestInstrumented_NoRetrier(t *testing.T) {
	f := &flaky{fail: 1}
	_, err := Instrument(f, "intent", nil).Complete(context.Background(), core.UserPrompt("x", 0, 0, 0))
	assert.Error(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
}
