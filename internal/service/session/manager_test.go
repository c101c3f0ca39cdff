package session

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/storage/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newManager(t *testing.T) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)}
	repo := objstore.NewSessionBlobs(objstore.NewMemory("sessions"), "sessions/")
	cfg := &config.SessionConfig{Timeout: time.Hour, MaxHistoryTurns: 50, JanitorInterval: time.Minute}
	return NewManager(repo, cfg, c.Now), c
}

func TestNewID(t *testing.T) {
	id := NewID(time.Date(2025, 8, 11, 8, 0, 5, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^20250811-170005-[0-9a-f]{6}$`), id)
	assert.NotEqual(t, id, NewID(time.Date(2025, 8, 11, 8, 0, 5, 0, time.UTC)))
}

func TestManager_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	s, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 0, s.TurnID)

	s.TurnID = 1
	s.AppendHistory(core.Turn{Query: "q", Answer: "a", Route: core.RouteGeneral}, 50)
	require.NoError(t, m.Save(ctx, s))

	again, err := m.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.TurnID)
	assert.Len(t, again.History, 1)
	assert.Equal(t, 1, m.Len())
}

func TestManager_Expiry(t *testing.T) {
	ctx := context.Background()
	m, c := newManager(t)

	s, err := m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	s.TurnID = 4
	require.NoError(t, m.Save(ctx, s))

	c.Advance(59 * time.Minute)
	s, err = m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, s.TurnID, "still active")

	c.Advance(2 * time.Hour)
	s, err = m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.TurnID, "expired sessions start over")
	assert.Equal(t, "s1", s.ID)

	_, err = m.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestManager_Evict(t *testing.T) {
	ctx := context.Background()
	m, c := newManager(t)

	for _, id := range []string{"a", "b"} {
		s, err := m.GetOrCreate(ctx, id)
		require.NoError(t, err)
		require.NoError(t, m.Save(ctx, s))
	}
	c.Advance(30 * time.Minute)
	s, err := m.GetOrCreate(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, s))

	c.Advance(45 * time.Minute)
	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 1, m.Len())
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	s, err := m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	s.TurnID = 3
	require.NoError(t, m.Save(ctx, s))

	require.NoError(t, m.Reset(ctx, "s1"))
	_, err = m.Get(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.NoError(t, m.Reset(ctx, "never-existed"))
}

type brokenRepo struct{}

func (brokenRepo) Load(context.Context, string) (*core.Session, error) {
	return nil, errors.New("disk on fire")
}
func (brokenRepo) Save(context.Context, *core.Session) error { return errors.New("disk on fire") }
func (brokenRepo) Delete(context.Context, string) error      { return nil }

func TestManager_RepositoryOutage(t *testing.T) {
	ctx := context.Background()
	m := NewManager(brokenRepo{}, &config.SessionConfig{Timeout: time.Hour}, nil)

	_, err := m.GetOrCreate(ctx, "s1")
	assert.Error(t, err)

	m.cache["s1"] = core.NewSession("s1", core.Now())
	s, err := m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
}

func TestManager_LockSerializes(t *testing.T) {
	m, _ := newManager(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("s1")
			defer unlock()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
}

func TestManager_EvictKeepsHeldLock(t *testing.T) {
	ctx := context.Background()
	m, clk := newManager(t)

	_, err := m.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	unlock := m.Lock("s1")

	// a second turn queues on the lock before eviction runs
	entered := make(chan struct{})
	go func() {
		release := m.Lock("s1")
		close(entered)
		release()
	}()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.locks["s1"].refs == 2
	}, time.Second, time.Millisecond)

	clk.Advance(2 * time.Hour)
	assert.Equal(t, 1, m.Evict())

	// a turn arriving after eviction still waits for the holder
	third := make(chan struct{})
	go func() {
		release := m.Lock("s1")
		close(third)
		release()
	}()
	select {
	case <-entered:
		t.Fatal("queued turn ran while the lock was held")
	case <-third:
		t.Fatal("new turn ran while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-entered
	<-third
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.locks) == 0
	}, time.Second, time.Millisecond)
}

type purgeRecorder struct {
	mu     sync.Mutex
	before []time.Time
}

func (p *purgeRecorder) PurgeIdle(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.before = append(p.before, before)
	return 0, nil
}

func (p *purgeRecorder) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.before)
}

func TestJanitor(t *testing.T) {
	m, _ := newManager(t)
	p := &purgeRecorder{}
	j := NewJanitor(m, p)
	j.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Start(ctx) }()

	assert.Eventually(t, func() bool { return p.calls() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, time.Date(2025, 8, 11, 16, 0, 0, 0, core.KST), p.before[0])
}
