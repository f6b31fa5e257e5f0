// Package storage keeps incident photos in a GCS bucket, a local directory or
// memory, and validates uploads by sniffing their content.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/models"
)

// DefaultMaxBytes is the largest accepted photo.
const DefaultMaxBytes = 10 << 20

// PhotoStore persists an object and returns the URL clients load it from.
type PhotoStore interface {
	Put(ctx context.Context, object, contentType string, data []byte) (string, error)
	Ping(ctx context.Context) error
}

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Photo rejections. Each wraps models.ErrValidation.
var (
	ErrPhotoEmpty    = fmt.Errorf("%w: photo is empty", models.ErrValidation)
	ErrPhotoTooLarge = fmt.Errorf("%w: photo is too large", models.ErrValidation)
	ErrPhotoType     = fmt.Errorf("%w: unsupported photo type", models.ErrValidation)
)

// Photo is an upload that passed validation.
type Photo struct {
	ContentType string
	Ext         string
	Data        []byte
}

// ValidatePhoto checks size and sniffs the content type. The declared type of
// the upload is ignored.
func ValidatePhoto(data []byte, maxBytes int64) (Photo, error) {
	if len(data) == 0 {
		return Photo{}, ErrPhotoEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Photo{}, fmt.Errorf("%d bytes, limit is %d: %w", len(data), maxBytes, ErrPhotoTooLarge)
	}
	mt := mimetype.Detect(data)
	ext, ok := allowedTypes[mt.String()]
	if !ok {
		return Photo{}, fmt.Errorf("%s: %w", mt.String(), ErrPhotoType)
	}
	return Photo{ContentType: mt.String(), Ext: ext, Data: data}, nil
}

// ObjectName builds the bucket path for a new incident photo.
func ObjectName(now time.Time, ext string) string {
	return fmt.Sprintf("incidents/%d-%s.%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}
