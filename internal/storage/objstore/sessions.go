package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
)

// SessionBlobs keeps one snapshot blob per session at {prefix}{id}.json.
type SessionBlobs struct {
	store  core.ObjectStore
	prefix string
}

func NewSessionBlobs(store core.ObjectStore, prefix string) *SessionBlobs {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SessionBlobs{store: store, prefix: prefix}
}

func (s *SessionBlobs) key(id string) (string, error) {
	if err := core.ValidateSessionID(id); err != nil {
		return "", err
	}
	return s.prefix + id + ".json", nil
}

func (s *SessionBlobs) Load(ctx context.Context, id string) (*core.Session, error) {
	key, err := s.key(id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Get(ctx, key, 0)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	sess.Normalize()
	return &sess, nil
}

func (s *SessionBlobs) Save(ctx context.Context, sess *core.Session) error {
	key, err := s.key(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	return s.store.Put(ctx, key, data, "application/json")
}

func (s *SessionBlobs) Delete(ctx context.Context, id string) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, key)
}
