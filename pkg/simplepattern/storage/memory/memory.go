package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-pattern/pkg/simplepattern"
)

// Backend is an in-memory implementation of the simplepattern.BlobStore interface
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
}

var _ simplepattern.BlobStore = (*Backend)(nil)

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// Upload stores content under objectKey
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.contentTypes[objectKey] = contentType
	return nil
}

// Download returns the content stored under objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simplepattern.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes objectKey
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return simplepattern.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	delete(b.contentTypes, objectKey)
	return nil
}

// ContentType returns the content type recorded for objectKey
func (b *Backend) ContentType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ct, ok := b.contentTypes[objectKey]
	return ct, ok
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
