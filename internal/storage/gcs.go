package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/safetyfirst/backend/internal/models"
	"google.golang.org/api/option"
)

// GCS stores photos in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

var _ PhotoStore = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: write %s/%s: %w", models.ErrBackendUnavailable, g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s/%s: %w", models.ErrBackendUnavailable, g.bucket, object, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, object), nil
}

func (g *GCS) Ping(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("%w: bucket %s: %w", models.ErrBackendUnavailable, g.bucket, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
