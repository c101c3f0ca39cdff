package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Sessions {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "nested", "airbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessions(db)
}

func TestSessions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	now := time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	s := core.NewSession("s1", now)
	s.TurnID = 2
	s.AppendHistory(core.Turn{Query: "온도", Answer: "24도", Route: core.RouteSensor}, 50)
	s.FollowupContext = &core.FollowupContext{
		Type:      core.FollowupSingleTime,
		Data:      map[string]string{"time": "2025-08-11 14:05"},
		Timestamp: now,
	}
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnID)
	require.Len(t, got.History, 1)
	assert.Equal(t, core.RouteSensor, got.History[0].Route)
	assert.Equal(t, "2025-08-11 14:05", got.FollowupContext.Data["time"])
	assert.Equal(t, core.KST, got.LastActivity.Location())
	assert.True(t, got.LastActivity.Equal(now))

	s.TurnID = 3
	require.NoError(t, repo.Save(ctx, s), "upsert")
	got, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TurnID)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestSessions_PurgeIdle(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	now := time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)

	old := core.NewSession("old", now.Add(-3*time.Hour))
	fresh := core.NewSession("fresh", now)
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	n, err := repo.PurgeIdle(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Load(ctx, "old")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = repo.Load(ctx, "fresh")
	assert.NoError(t, err)
}

func TestTurns(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, filepath.Join(t.TempDir(), "airbot.db"))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 8, 11, 17, 0, 0, 0, core.KST)
	turns := NewTurns(db, func() time.Time { return now })

	for i := 1; i <= 3; i++ {
		require.NoError(t, turns.WriteTurn(ctx, core.TurnRecord{
			SessionID: "s1",
			TurnID:    i,
			Route:     core.RouteSensor,
			Query:     "q",
			Answer:    "a",
			Docs:      []core.SensorDocument{{ID: "minavg/x.json", Score: i, Schema: core.SchemaMinAvg}},
		}))
	}
	require.NoError(t, turns.WriteTurn(ctx, core.TurnRecord{SessionID: "s2", TurnID: 1, Route: core.RouteGeneral}))

	got, err := turns.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].TurnID)
	assert.Equal(t, 3, got[1].TurnID)
	assert.Equal(t, "2025-08-11 17:00:00", got[1].Timestamp)
	require.Len(t, got[1].Docs, 1)
	assert.Equal(t, 3, got[1].Docs[0].Score)
	assert.Equal(t, "minavg/x.json", got[1].Docs[0].ID)
}
