package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/sandevgo/airbot/internal/core"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS reads sensor aggregates from, and writes chat logs to, a Cloud
// Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) List(ctx context.Context, prefix string, limit int) ([]core.ObjectInfo, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var out []core.ObjectInfo
	for limit <= 0 || len(out) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out = append(out, core.ObjectInfo{Key: attrs.Name, Size: attrs.Size, Updated: attrs.Updated})
	}
	return out, nil
}

func (g *GCS) Head(ctx context.Context, key string) (core.ObjectInfo, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		return core.ObjectInfo{}, g.wrap("head", key, err)
	}
	return core.ObjectInfo{Key: attrs.Name, Size: attrs.Size, Updated: attrs.Updated}, nil
}

func (g *GCS) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	length := int64(-1)
	if maxBytes > 0 {
		length = maxBytes
	}
	r, err := g.client.Bucket(g.bucket).Object(key).NewRangeReader(ctx, 0, length)
	if err != nil {
		return nil, g.wrap("get", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, key)
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) wrap(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
