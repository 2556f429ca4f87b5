package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	obj, err := s.Put(ctx, "u1/1700000000000-scan.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Size != 8 {
		t.Errorf("size = %d, want 8", obj.Size)
	}
	if len(obj.SHA256) != 64 {
		t.Errorf("expected hex sha256, got %q", obj.SHA256)
	}

	rc, got, err := s.Get(ctx, obj.Path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.7" {
		t.Errorf("content = %q", data)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("content type = %q", got.ContentType)
	}

	if err := s.Delete(ctx, obj.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Get(ctx, obj.Path); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_WriteOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Put(ctx, "a/b.txt", "text/plain", strings.NewReader("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, "a/b.txt", "text/plain", strings.NewReader("two")); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Put(ctx, "", "text/plain", strings.NewReader("x")); !errors.Is(err, ErrMissingPath) {
		t.Errorf("expected ErrMissingPath, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Put(cancelled, "x", "text/plain", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestMemoryStore_ConcurrentPuts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "same/path", "text/plain", strings.NewReader("x")); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful put, got %d", wins)
	}
}
