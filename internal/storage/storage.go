// Package storage persists generated image files on local disk or S3.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"pulsevote/internal/config"
)

// ObjectStore writes immutable objects addressed by key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	// URL is the public address of key.
	URL(key string) string
}

// ImageKey returns images/{hash}/{name}.
func ImageKey(hash, name string) string {
	return path.Join("images", hash, path.Base(name))
}

// New builds the store selected by IMAGE_STORAGE.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch strings.ToLower(cfg.ImageStorage) {
	case "", "local":
		return NewLocal(cfg.ImageDir, "/media"), nil
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported image storage %q", cfg.ImageStorage)
	}
}
