package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/airbot/internal/core"
)

const previewRunes = 80

// SessionStore is the part of the session manager commands need.
type SessionStore interface {
	Get(ctx context.Context, id string) (*core.Session, error)
	Reset(ctx context.Context, id string) error
}

type ResetCommand struct {
	sessions  SessionStore
	formatter *ResponseFormatter
}

func NewResetCommand(sessions SessionStore) *ResetCommand {
	return &ResetCommand{sessions: sessions, formatter: NewResponseFormatter()}
}

func (c *ResetCommand) Name() string { return "reset" }

func (c *ResetCommand) Description() string {
	return "대화 기록과 후속 질문 문맥을 지웁니다"
}

func (c *ResetCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if err := c.sessions.Reset(ctx, sessionID); err != nil {
		return "", err
	}
	return c.formatter.Success("새 대화를 시작합니다"), nil
}

type SessionCommand struct {
	sessions  SessionStore
	formatter *ResponseFormatter
}

func NewSessionCommand(sessions SessionStore) *SessionCommand {
	return &SessionCommand{sessions: sessions, formatter: NewResponseFormatter()}
}

func (c *SessionCommand) Name() string { return "session" }

func (c *SessionCommand) Description() string { return "현재 세션 상태를 보여줍니다" }

func (c *SessionCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	s, err := c.sessions.Get(ctx, sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		return c.formatter.Combine(
			c.formatter.Info("세션"),
			c.formatter.Label("ID", sessionID),
			"아직 대화가 없습니다.",
		), nil
	}
	if err != nil {
		return "", err
	}

	out := []string{
		c.formatter.Info("세션"),
		c.formatter.Label("ID", s.ID),
		c.formatter.Label("턴", strconv.Itoa(s.TurnID)),
		c.formatter.Label("마지막 활동", s.LastActivity.In(core.KST).Format(time.DateTime)),
	}
	if f := s.RecentContext; f != nil {
		out = append(out, c.formatter.Label("최근 문맥", describe(f)))
	}
	if f := s.FollowupContext; f != nil {
		out = append(out, c.formatter.Label("후속 문맥", describe(f)))
	}
	if w := s.LastSensorWindow; w != nil {
		out = append(out, c.formatter.Label("마지막 조회",
			fmt.Sprintf("%s %s ~ %s (%d행)", w.Window,
				w.Start.In(core.KST).Format(core.TimeLayout), w.End.In(core.KST).Format(core.TimeLayout), len(w.Rows))))
	}
	return c.formatter.Combine(out...), nil
}

func describe(f *core.FollowupContext) string {
	switch f.Type {
	case core.FollowupTimeRange:
		return fmt.Sprintf("%s %s ~ %s", f.Type, f.Data["start"], f.Data["end"])
	case core.FollowupDailyAverage:
		return fmt.Sprintf("%s %s", f.Type, f.Data["date"])
	default:
		return fmt.Sprintf("%s %s", f.Type, f.Data["time"])
	}
}

type HistoryCommand struct {
	sessions  SessionStore
	limit     int
	formatter *ResponseFormatter
}

func NewHistoryCommand(sessions SessionStore, limit int) *HistoryCommand {
	return &HistoryCommand{sessions: sessions, limit: limit, formatter: NewResponseFormatter()}
}

func (c *HistoryCommand) Name() string { return "history" }

func (c *HistoryCommand) Description() string {
	return "최근 대화를 보여줍니다 (/history [개수])"
}

func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	limit := c.limit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "", fmt.Errorf("invalid count %q", args[0])
		}
		limit = n
	}

	s, err := c.sessions.Get(ctx, sessionID)
	if errors.Is(err, core.ErrSessionNotFound) || (err == nil && len(s.History) == 0) {
		return c.formatter.Info("대화 기록이 없습니다"), nil
	}
	if err != nil {
		return "", err
	}

	items := make([]string, 0, limit)
	for _, t := range s.RecentHistory(limit) {
		items = append(items, fmt.Sprintf("[%s] %s → %s", t.Route, t.Query, preview(t.Answer)))
	}
	return c.formatter.Combine(c.formatter.Info("최근 대화"), c.formatter.List(items)), nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "…"
}
