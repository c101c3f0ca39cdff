package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/log"
)

// Sessions stores whole session snapshots as JSON, one row per id.
type Sessions struct {
	db *sql.DB
}

func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Load(ctx context.Context, id string) (*core.Session, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess core.Session
	if err := json.Unmarshal([]byte(snapshot), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	sess.Normalize()
	return &sess, nil
}

func (s *Sessions) Save(ctx context.Context, sess *core.Session) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}

	query := `
		INSERT INTO sessions (id, turn_id, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			turn_id = excluded.turn_id,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		sess.ID, sess.TurnID, string(snapshot),
		sess.CreatedAt.In(core.KST).Format(time.RFC3339), sess.LastActivity.In(core.KST).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeIdle removes snapshots untouched since before and returns how
// many went.
func (s *Sessions) PurgeIdle(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.In(core.KST).Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.FromCtx(ctx).Debug().Int64("count", n).Msg("purged idle sessions")
	}
	return n, nil
}
