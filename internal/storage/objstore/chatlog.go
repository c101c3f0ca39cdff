package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

// ChatLog writes one JSON blob per turn under
// {prefix}{sessionId}/{turn:04d}_{epoch}.json.
type ChatLog struct {
	store  core.ObjectStore
	prefix string
	now    core.Clock
}

func NewChatLog(store core.ObjectStore, prefix string, now core.Clock) *ChatLog {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if now == nil {
		now = core.Now
	}
	return &ChatLog{store: store, prefix: prefix, now: now}
}

func (c *ChatLog) Key(sessionID string, turnID int, at time.Time) string {
	return fmt.Sprintf("%s%s/%04d_%d.json", c.prefix, sessionID, turnID, at.Unix())
}

func (c *ChatLog) WriteTurn(ctx context.Context, rec core.TurnRecord) error {
	if err := core.ValidateSessionID(rec.SessionID); err != nil {
		return err
	}
	at := c.now()
	if rec.Timestamp == "" {
		rec.Timestamp = at.In(core.KST).Format(time.DateTime)
	}
	if rec.Docs == nil {
		rec.Docs = []core.SensorDocument{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	if err := c.store.Put(ctx, c.Key(rec.SessionID, rec.TurnID, at), data, "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("save turn record: %w", err)
	}
	return nil
}
