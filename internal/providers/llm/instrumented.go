package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
	"github.com/sandevgo/airbot/pkg/log"
	"github.com/sandevgo/airbot/pkg/retry"
)

// Instrumented retries transient failures and records every call under
// a purpose label ("intent", "answer").
type Instrumented struct {
	next    core.Completer
	purpose string
	retrier *retry.Retrier
}

func Instrument(next core.Completer, purpose string, r *retry.Retrier) *Instrumented {
	return &Instrumented{next: next, purpose: purpose, retrier: r}
}

func (i *Instrumented) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	start := time.Now()
	var out string
	op := func() error {
		var err error
		out, err = i.next.Complete(ctx, req)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Permanent(err)
		}
		return err
	}

	var err error
	if i.retrier != nil {
		err = i.retrier.Do(ctx, op)
	} else {
		err = op()
	}
	metrics.LLMRequest(i.purpose, err)

	log.FromCtx(ctx).Debug().
		Str("purpose", i.purpose).
		Dur("took", time.Since(start)).
		Int("chars", len(out)).
		Err(err).
		Msg("llm completion")
	return out, err
}
