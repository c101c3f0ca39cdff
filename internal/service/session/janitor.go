package session

import (
	"context"
	"time"

	"github.com/sandevgo/airbot/pkg/log"
)

// Purger is implemented by repositories that can drop stale snapshots.
type Purger interface {
	PurgeIdle(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically evicts idle sessions from the cache and, when
// the repository supports it, from storage.
type Janitor struct {
	manager  *Manager
	purger   Purger
	Interval time.Duration
}

func NewJanitor(m *Manager, purger Purger) *Janitor {
	interval := m.cfg.JanitorInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{manager: m, purger: purger, Interval: interval}
}

func (j *Janitor) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", j.Interval).Msg("starting session janitor")

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) Shutdown(ctx context.Context) error {
	return nil
}

func (j *Janitor) sweep(ctx context.Context) {
	logger := log.FromCtx(ctx)
	if n := j.manager.Evict(); n > 0 {
		logger.Debug().Int("count", n).Msg("evicted idle sessions")
	}
	if j.purger == nil || j.manager.cfg.Timeout <= 0 {
		return
	}
	before := j.manager.now().Add(-j.manager.cfg.Timeout)
	if _, err := j.purger.PurgeIdle(ctx, before); err != nil {
		logger.Error().Err(err).Msg("session purge failed")
	}
}
