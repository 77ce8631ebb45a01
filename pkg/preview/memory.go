package preview

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vango-dev/filestage/pkg/policy"
)

// MemoryAllocator keeps preview bytes in memory.
type MemoryAllocator struct {
	prefix string

	mu    sync.RWMutex
	blobs map[string]*memoryBlob
}

type memoryBlob struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// NewMemoryAllocator creates a MemoryAllocator whose URLs start with prefix.
func NewMemoryAllocator(prefix string) *MemoryAllocator {
	return &MemoryAllocator{
		prefix: prefix,
		blobs:  make(map[string]*memoryBlob),
	}
}

// Allocate reads f into memory.
func (a *MemoryAllocator) Allocate(_ context.Context, key string, f policy.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.blobs[key] = &memoryBlob{data: data, contentType: f.MIMEType, createdAt: time.Now()}
	a.mu.Unlock()

	return joinURL(a.prefix, key), nil
}

// Revoke drops the bytes stored under key.
func (a *MemoryAllocator) Revoke(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(a.blobs, key)
	return nil
}

// Len returns the number of stored previews.
func (a *MemoryAllocator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.blobs)
}

// Handler serves previews by key. Mount it with http.StripPrefix.
func (a *MemoryAllocator) Handler() http.Handler {
	return serveBlobs(func(key string) (io.ReadSeekCloser, string, time.Time, error) {
		a.mu.RLock()
		blob, ok := a.blobs[key]
		a.mu.RUnlock()
		if !ok {
			return nil, "", time.Time{}, ErrNotFound
		}
		return nopSeekCloser{bytes.NewReader(blob.data)}, blob.contentType, blob.createdAt, nil
	})
}
