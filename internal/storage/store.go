package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/regexyl/instantcards/internal/fileutil"
)

// A BlobStore persists named artifacts and returns a stable reference for
// each one. Keys use forward slashes regardless of platform.
type BlobStore interface {
	// Put stores the contents of r under key and returns the canonical
	// reference. contentType is advisory; backends without object metadata
	// ignore it.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// PutFile stores the file at src under key and returns the canonical
	// reference.
	PutFile(ctx context.Context, key, src, contentType string) (string, error)
}

// LocalStore is a BlobStore rooted at a local directory. References returned
// by Put and PutFile are the cleaned keys, so callers can persist them
// without knowing the root.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed and returns a store
// writing beneath it.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory the store writes beneath.
func (s *LocalStore) Root() string {
	return s.root
}

// Put writes r to the file addressed by key, creating parent directories as
// needed. Existing content under the same key is replaced.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, dest, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("storage: create key directory: %w", err)
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	return key, nil
}

// PutFile copies the file at src to the location addressed by key. The copy
// is hash-verified so a corrupted artifact never receives a reference.
func (s *LocalStore) PutFile(ctx context.Context, key, src, contentType string) (string, error) {
	key, dest, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("storage: create key directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(src, dest); err != nil {
		return "", fmt.Errorf("storage: store %s: %w", key, err)
	}
	return key, nil
}

// resolve cleans the key and maps it to a path beneath the store root.
// Absolute keys and keys escaping the root are rejected.
func (s *LocalStore) resolve(key string) (string, string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", errors.New("storage: key required")
	}
	if path.IsAbs(key) {
		return "", "", fmt.Errorf("storage: invalid key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("storage: invalid key %q", key)
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
