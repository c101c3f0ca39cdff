package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
)

const (
	DomainSensor  = "sensor_data"
	DomainGeneral = "general"
)

type Intent struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

const intentPrompt = `다음 사용자 질문이 실내 IoT 센서 데이터(온도, 습도, 이산화탄소/공기질)에 관한 것인지 분류하세요.
반드시 아래 형식의 JSON 한 줄만 출력하세요. 다른 설명은 쓰지 마세요.
{"domain": "sensor_data" 또는 "general", "confidence": 0.0~1.0}

질문: %s`

// Classifier asks the LLM for a domain verdict and caches it by exact
// query text. Concurrent misses may both call the LLM; the stored
// verdicts are equivalent.
type Classifier struct {
	llm   core.Completer
	cache sync.Map
}

func NewClassifier(llm core.Completer) *Classifier {
	return &Classifier{llm: llm}
}

// Classify never fails open: on an LLM error or unreadable output it
// returns general with zero confidence alongside the error. Failures are
// not cached.
func (c *Classifier) Classify(ctx context.Context, query string) (Intent, error) {
	if v, ok := c.cache.Load(query); ok {
		metrics.IntentCache(true)
		return v.(Intent), nil
	}
	metrics.IntentCache(false)

	fallback := Intent{Domain: DomainGeneral}
	out, err := c.llm.Complete(ctx, core.UserPrompt(fmt.Sprintf(intentPrompt, query), 64, 0, 1))
	if err != nil {
		return fallback, fmt.Errorf("intent completion: %w", err)
	}
	in, err := ParseIntent(out)
	if err != nil {
		return fallback, err
	}
	c.cache.Store(query, in)
	return in, nil
}

var objectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)

// ParseIntent accepts the bare object, a fenced block, or the first
// object embedded in prose. Confidence is clamped to [0, 1].
func ParseIntent(text string) (Intent, error) {
	var in Intent
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &in); err != nil {
		m := objectRe.FindString(text)
		if m == "" {
			return Intent{}, fmt.Errorf("no intent object in %q", text)
		}
		if err := json.Unmarshal([]byte(m), &in); err != nil {
			return Intent{}, fmt.Errorf("decode intent: %w", err)
		}
	}

	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	if in.Domain == "sensor" {
		in.Domain = DomainSensor
	}
	if in.Domain != DomainSensor {
		in.Domain = DomainGeneral
	}
	in.Confidence = min(max(in.Confidence, 0), 1)
	return in, nil
}
