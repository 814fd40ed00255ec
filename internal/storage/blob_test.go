package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalBlobStore_RoundTrip(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	key, size, err := store.Put(ctx, "req-1", "meter.JPG", strings.NewReader("reading"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if size != 7 || !strings.HasPrefix(key, "req-1/") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q size %d", key, size)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "reading" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLocalBlobStore_SizeLimit(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, _, err := store.Put(context.Background(), "r", "a.txt", strings.NewReader("too long")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, n, err := store.Put(context.Background(), "r", "a.txt", strings.NewReader("four")); err != nil || n != 4 {
		t.Fatalf("payload at the limit should be stored, got n=%d err=%v", n, err)
	}
}

func TestLocalBlobStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Open(context.Background(), "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected traversal to be refused, got %v", err)
	}
	key, _, err := store.Put(context.Background(), "../../x", "f", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(key, "x/") {
		t.Fatalf("prefix should be sanitised, got %q", key)
	}
}
