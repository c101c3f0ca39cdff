package objstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/airbot/internal/core"
)

// Memory keeps objects in a map. It backs tests and the "memory" store
// backend.
type Memory struct {
	mu      sync.RWMutex
	name    string
	objects map[string]memObject
}

type memObject struct {
	data    []byte
	updated time.Time
}

func NewMemory(name string) *Memory {
	return &Memory{name: name, objects: make(map[string]memObject)}
}

func (m *Memory) List(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]core.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		o := m.objects[k]
		out = append(out, core.ObjectInfo{Key: k, Size: int64(len(o.data)), Updated: o.updated})
	}
	return out, nil
}

func (m *Memory) Head(ctx context.Context, key string) (core.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return core.ObjectInfo{}, fmt.Errorf("head %s: %w", key, core.ErrNotFound)
	}
	return core.ObjectInfo{Key: key, Size: int64(len(o.data)), Updated: o.updated}, nil
}

func (m *Memory) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, core.ErrNotFound)
	}
	data := o.data
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		data = data[:maxBytes]
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: append([]byte(nil), data...), updated: time.Now()}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) URI(key string) string {
	return "mem://" + m.name + "/" + key
}

// PutString is a test convenience.
func (m *Memory) PutString(key, data string) {
	_ = m.Put(context.Background(), key, []byte(data), "application/json")
}
