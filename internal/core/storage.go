package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound         = errors.New("object not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidKey       = errors.New("invalid object key")
)

// Session ids become object key segments, so they stay within one path
// element.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

type ObjectInfo struct {
	Key     string
	Size    int64
	Updated time.Time
}

// ObjectStore is a flat key/value blob store with prefix listing.
// List returns keys in lexicographic order, at most limit when limit > 0.
// Get reads at most maxBytes when maxBytes > 0.
type ObjectStore interface {
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string, maxBytes int64) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URI(key string) string
}

type SessionRepository interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// TurnRecord is the per-turn chat log entry.
type TurnRecord struct {
	SessionID     string           `json:"session_id"`
	TurnID        int              `json:"turn_id"`
	Timestamp     string           `json:"ts_kst"`
	Route         Route            `json:"route"`
	Query         string           `json:"query"`
	Answer        string           `json:"answer"`
	Docs          []SensorDocument `json:"docs"`
	LastSensorCtx *SensorWindow    `json:"last_sensor_ctx,omitempty"`
}

type ChatLog interface {
	WriteTurn(ctx context.Context, rec TurnRecord) error
}

// ChatLogs writes every record to each log in turn.
type ChatLogs []ChatLog

func (l ChatLogs) WriteTurn(ctx context.Context, rec TurnRecord) error {
	var errs []error
	for _, c := range l {
		if err := c.WriteTurn(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
