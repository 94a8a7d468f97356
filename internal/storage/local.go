package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a directory served at baseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal returns a disk-backed store rooted at dir.
func NewLocal(dir, baseURL string) *Local {
	if dir == "" {
		dir = "./data/images"
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the root directory.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.dir, clean), nil
}

func (l *Local) Put(_ context.Context, key, _ string, data []byte) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL maps images/{hash}/x.jpg to {baseURL}/images/{hash}/x.jpg.
func (l *Local) URL(key string) string {
	return l.baseURL + "/" + strings.TrimLeft(key, "/")
}
