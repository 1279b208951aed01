package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-ingest/internal/filesystem"
)

// SchemeFile addresses objects in a local directory.
const SchemeFile = "file"

// FileStore keeps objects under a root directory.
type FileStore struct {
	root  string
	retry filesystem.RetryConfig
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{root: root, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute storage directory.
func (s *FileStore) Root() string {
	return s.root
}

// Put writes data to root/key. Keys are sharded by their first two
// characters so no single directory grows too large.
func (s *FileStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	start := time.Now()
	path, err := s.keyPath(key)
	if err == nil {
		err = filesystem.WriteFileWithRetry(path, data, s.retry)
	}
	observe(SchemeFile, "put", start, err)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return (&url.URL{Scheme: SchemeFile, Path: path}).String(), nil
}

// Fetch reads the file a file:// URL points at.
func (s *FileStore) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	path, err := s.urlPath(rawURL)
	var data []byte
	if err == nil {
		data, err = filesystem.ReadFileWithRetry(path, s.retry)
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}
	observe(SchemeFile, "fetch", start, err)
	return data, err
}

// Delete removes the file a file:// URL points at. A missing file is not an
// error.
func (s *FileStore) Delete(_ context.Context, rawURL string) error {
	start := time.Now()
	path, err := s.urlPath(rawURL)
	if err == nil {
		err = filesystem.RemoveWithRetry(path, s.retry)
	}
	observe(SchemeFile, "delete", start, err)
	return err
}

func (s *FileStore) keyPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, shard, key), nil
}

// urlPath resolves a file:// URL and rejects paths outside the root.
func (s *FileStore) urlPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != SchemeFile {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	path := filepath.Clean(u.Path)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the storage directory", path)
	}
	return path, nil
}
