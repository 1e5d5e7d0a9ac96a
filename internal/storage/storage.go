// Package storage persists uploaded media on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"farmlink/internal/config"
)

// ErrNotFound is returned by Open for a missing object.
var ErrNotFound = errors.New("object not found")

// Store persists media objects addressed by slash-separated keys.
type Store interface {
	// Put writes the object and returns its public URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New builds the Store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.UploadDir, cfg.MediaBaseURL)
	case "s3":
		return NewS3(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// KeyFromURL recovers the object key from a URL previously returned by Put
// with the same baseURL. It returns "" when the URL does not belong to the
// store.
func KeyFromURL(baseURL, url string) string {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	key, ok := strings.CutPrefix(url, prefix)
	if !ok {
		return ""
	}
	key, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return key
}

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", errors.New("empty object key")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

func joinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}
