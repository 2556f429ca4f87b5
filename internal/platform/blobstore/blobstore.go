// Package blobstore stores document payloads by path. The in-memory backend
// serves development and tests; S3Store serves S3 and S3-compatible stores
// such as MinIO.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrExists      = errors.New("blob already exists")
	ErrMissingPath = errors.New("blob path is required")
)

// Object describes a stored payload.
type Object struct {
	Path        string
	ContentType string
	Size        int64
	SHA256      string
	StoredAt    time.Time
}

// Store is the payload collaborator used by the document service.
type Store interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) (Object, error)
	Get(ctx context.Context, path string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, path string) error
}

type memBlob struct {
	obj  Object
	data []byte
}

// MemoryStore is a thread-safe in-process Store. Paths are write-once.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob), now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, path, contentType string, body io.Reader) (Object, error) {
	if path == "" {
		return Object{}, ErrMissingPath
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("read blob body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	sum := sha256.Sum256(data)
	obj := Object{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		StoredAt:    s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; ok {
		return Object{}, ErrExists
	}
	s.blobs[path] = memBlob{obj: obj, data: data}
	return obj, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (io.ReadCloser, Object, error) {
	s.mu.RLock()
	b, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, Object{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.obj, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, path)
	return nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
