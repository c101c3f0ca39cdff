package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/pkg/log"
)

// Turns is a local, queryable copy of the chat log.
type Turns struct {
	db  *sql.DB
	now core.Clock
}

func NewTurns(db *sql.DB, now core.Clock) *Turns {
	if now == nil {
		now = core.Now
	}
	return &Turns{db: db, now: now}
}

func (t *Turns) WriteTurn(ctx context.Context, rec core.TurnRecord) error {
	if rec.Timestamp == "" {
		rec.Timestamp = t.now().In(core.KST).Format(time.DateTime)
	}
	docs := rec.Docs
	if docs == nil {
		docs = []core.SensorDocument{}
	}
	docsJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal docs: %w", err)
	}

	query := `INSERT INTO turns (session_id, turn_id, ts_kst, route, query, answer, docs) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = t.db.ExecContext(ctx, query, rec.SessionID, rec.TurnID, rec.Timestamp, string(rec.Route), rec.Query, rec.Answer, string(docsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

// Recent returns the last limit turns of a session, oldest first.
func (t *Turns) Recent(ctx context.Context, sessionID string, limit int) ([]core.TurnRecord, error) {
	// Fetch the LAST 'limit' turns by ordering DESC
	query := `SELECT turn_id, ts_kst, route, query, answer, docs FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := t.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var out []core.TurnRecord
	for rows.Next() {
		rec := core.TurnRecord{SessionID: sessionID}
		var route, docs string
		if err := rows.Scan(&rec.TurnID, &rec.Timestamp, &route, &rec.Query, &rec.Answer, &docs); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		rec.Route = core.Route(route)
		if docs != "" {
			if err := json.Unmarshal([]byte(docs), &rec.Docs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal docs: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest first from the query; callers want chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(out)).Str("session", sessionID).Msg("loaded turns")
	return out, nil
}
