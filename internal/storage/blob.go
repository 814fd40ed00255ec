// Package storage keeps attachment payloads on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when a payload exceeds the configured limit.
var ErrTooLarge = errors.New("storage: payload exceeds size limit")

// ErrNotFound is returned when a key has no stored payload.
var ErrNotFound = errors.New("storage: blob not found")

// BlobStore stores opaque payloads under generated keys.
type BlobStore interface {
	Put(ctx context.Context, prefix, fileName string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// LocalBlobStore writes blobs below a root directory.
type LocalBlobStore struct {
	root     string
	maxBytes int64
}

// NewLocalBlobStore creates root if needed. maxBytes <= 0 disables the limit.
func NewLocalBlobStore(root string, maxBytes int64) (*LocalBlobStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &LocalBlobStore{root: root, maxBytes: maxBytes}, nil
}

// Put streams r to <prefix>/<uuid><ext> and returns the key and written size.
// A payload over the limit is removed and ErrTooLarge returned.
func (s *LocalBlobStore) Put(ctx context.Context, prefix, fileName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	key := filepath.ToSlash(filepath.Join(sanitize(prefix), uuid.NewString()+strings.ToLower(filepath.Ext(fileName))))
	path, err := s.path(key)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", 0, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, err
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && s.maxBytes > 0 && n > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return key, n, nil
}

// Open returns a reader for key.
func (s *LocalBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes key. Missing keys are not an error.
func (s *LocalBlobStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, clean), nil
}

func sanitize(prefix string) string {
	prefix = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, prefix)
	if prefix == "" {
		return "misc"
	}
	return prefix
}
