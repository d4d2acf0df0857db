package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = (*LocalStore)(nil)

// LocalStore writes files below a directory that is served statically.
type LocalStore struct {
	dir     string
	urlPath string
}

func NewLocalStore(dir, urlPath string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, urlPath: urlPath}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + key))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(s.dir, name)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return joinURL(s.urlPath, name), nil
}

func (s *LocalStore) Close() error {
	return nil
}
