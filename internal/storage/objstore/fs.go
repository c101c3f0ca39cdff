package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sandevgo/airbot/internal/core"
)

// FS maps keys onto files below a root directory. Key separators are
// always "/".
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FS{root: abs}, nil
}

// path resolves key below root and refuses keys that climb out of it.
func (f *FS) path(key string) (string, error) {
	p := filepath.Join(f.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKey, key)
	}
	return p, nil
}

func (f *FS) List(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	dir := prefix
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}
	start, err := f.path(dir)
	if err != nil {
		return nil, err
	}

	var out []core.ObjectInfo
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || strings.HasSuffix(key, ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, core.ObjectInfo{Key: key, Size: info.Size(), Updated: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FS) Head(ctx context.Context, key string) (core.ObjectInfo, error) {
	p, err := f.path(key)
	if err != nil {
		return core.ObjectInfo{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return core.ObjectInfo{}, f.wrap("head", key, err)
	}
	return core.ObjectInfo{Key: key, Size: info.Size(), Updated: info.ModTime()}, nil
}

func (f *FS) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, f.wrap("get", key, err)
	}
	defer file.Close()

	var r io.Reader = file
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *FS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (f *FS) Delete(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f *FS) URI(key string) string {
	p, err := f.path(key)
	if err != nil {
		p = filepath.Join(f.root, path.Clean("/"+key))
	}
	return "file://" + filepath.ToSlash(p)
}

func (f *FS) wrap(op, key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
