// Package session keeps conversation state between turns. The repository
// is the source of truth; the in-memory cache only backs janitor
// eviction and outages of the repository.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/metrics"
	"github.com/sandevgo/airbot/pkg/log"
)

// NewID returns "YYYYmmdd-HHMMSS-<6 hex>" in KST.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return now.In(core.KST).Format("20060102-150405") + "-" + suffix
}

type Manager struct {
	repo core.SessionRepository
	cfg  *config.SessionConfig
	now  core.Clock

	mu    sync.Mutex
	cache map[string]*core.Session
	locks map[string]*turnLock
}

// turnLock is dropped from the map by its last holder or waiter.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(repo core.SessionRepository, cfg *config.SessionConfig, now core.Clock) *Manager {
	if now == nil {
		now = core.Now
	}
	return &Manager{
		repo:  repo,
		cfg:   cfg,
		now:   now,
		cache: make(map[string]*core.Session),
		locks: make(map[string]*turnLock),
	}
}

func (m *Manager) NewID() string {
	return NewID(m.now())
}

// Lock serializes turns of one session and returns the unlock func.
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &turnLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// GetOrCreate reloads the session from the repository. An unknown or
// expired id yields a fresh session under the same id; an empty id gets
// a new one.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*core.Session, error) {
	logger := log.FromCtx(ctx)
	now := m.now().In(core.KST)
	if id == "" {
		id = NewID(now)
	}

	s, err := m.repo.Load(ctx, id)
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		s = nil
	case err != nil:
		m.mu.Lock()
		cached, ok := m.cache[id]
		m.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		logger.Warn().Err(err).Str("session", id).Msg("session repository unavailable, using cached copy")
		s = cached
	}

	if s != nil && s.Expired(now, m.cfg.Timeout) {
		logger.Debug().Str("session", id).Time("last_activity", s.LastActivity).Msg("session expired, starting over")
		s = nil
	}
	if s == nil {
		s = core.NewSession(id, now)
	}

	m.mu.Lock()
	m.cache[id] = s
	n := len(m.cache)
	m.mu.Unlock()
	metrics.SetActiveSessions(n)
	return s, nil
}

// Get loads an existing, unexpired session without creating one.
func (m *Manager) Get(ctx context.Context, id string) (*core.Session, error) {
	s, err := m.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now(), m.cfg.Timeout) {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

// Save stamps activity and persists the whole session.
func (m *Manager) Save(ctx context.Context, s *core.Session) error {
	s.LastActivity = m.now().In(core.KST)
	if err := m.repo.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	m.mu.Lock()
	m.cache[s.ID] = s
	m.mu.Unlock()
	return nil
}

// Reset forgets the session everywhere.
func (m *Manager) Reset(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
	if err := m.repo.Delete(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("reset session %s: %w", id, err)
	}
	return nil
}

// Evict drops cached sessions idle longer than the timeout and returns
// how many went.
func (m *Manager) Evict() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.cache {
		if !s.Expired(now, m.cfg.Timeout) {
			continue
		}
		delete(m.cache, id)
		evicted++
	}
	metrics.SetActiveSessions(len(m.cache))
	return evicted
}

// Len is the number of cached sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
