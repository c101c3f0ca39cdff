package objstore

import (
	"context"
	"errors"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/retry"
)

// Retrying wraps reads with bounded backoff. Misses are not retried.
type Retrying struct {
	core.ObjectStore
	retrier *retry.Retrier
}

func WithRetry(store core.ObjectStore, r *retry.Retrier) *Retrying {
	return &Retrying{ObjectStore: store, retrier: r}
}

func (s *Retrying) List(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	var out []core.ObjectInfo
	err := s.retrier.Do(ctx, func() error {
		var err error
		out, err = s.ObjectStore.List(ctx, prefix, limit)
		return classify(err)
	})
	return out, err
}

func (s *Retrying) Head(ctx context.Context, key string) (core.ObjectInfo, error) {
	var info core.ObjectInfo
	err := s.retrier.Do(ctx, func() error {
		var err error
		info, err = s.ObjectStore.Head(ctx, key)
		return classify(err)
	})
	return info, err
}

func (s *Retrying) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	var data []byte
	err := s.retrier.Do(ctx, func() error {
		var err error
		data, err = s.ObjectStore.Get(ctx, key, maxBytes)
		return classify(err)
	})
	return data, err
}

func classify(err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidKey) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Permanent(err)
	}
	return err
}
