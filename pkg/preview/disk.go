package preview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/filestage/pkg/policy"
)

// DiskAllocator stores previews on the local filesystem.
type DiskAllocator struct {
	dir     string
	prefix  string
	maxSize int64

	mu    sync.RWMutex
	files map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrTooLarge is returned when preview content exceeds the allocator's limit.
var ErrTooLarge = errors.New("preview: content too large")

// NewDiskAllocator creates a DiskAllocator.
//
// Parameters:
//   - dir: Directory to store preview files
//   - prefix: URL prefix under which Handler is mounted
//   - maxSize: Maximum preview size in bytes (0 = no limit)
func NewDiskAllocator(dir, prefix string, maxSize int64) (*DiskAllocator, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &DiskAllocator{
		dir:     dir,
		prefix:  prefix,
		maxSize: maxSize,
		files:   make(map[string]*diskMeta),
	}, nil
}

// Allocate copies f's content to dir/key.
func (a *DiskAllocator) Allocate(_ context.Context, key string, f policy.File) (string, error) {
	if a.maxSize > 0 && f.Size > a.maxSize {
		return "", ErrTooLarge
	}

	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	path := a.path(key)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	var reader io.Reader = rc
	if a.maxSize > 0 {
		reader = io.LimitReader(rc, a.maxSize+1) // +1 to detect overflow
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if a.maxSize > 0 && written > a.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	meta := &diskMeta{
		Filename:    f.Name,
		ContentType: f.MIMEType,
		Size:        written,
		CreatedAt:   time.Now(),
	}

	a.mu.Lock()
	a.files[key] = meta
	a.mu.Unlock()

	if err := a.saveMeta(key, meta); err != nil {
		a.mu.Lock()
		delete(a.files, key)
		a.mu.Unlock()
		os.Remove(path)
		return "", err
	}

	return joinURL(a.prefix, key), nil
}

// Revoke deletes the preview file and its metadata.
func (a *DiskAllocator) Revoke(_ context.Context, key string) error {
	a.mu.Lock()
	delete(a.files, key)
	a.mu.Unlock()

	err := os.Remove(a.path(key))
	os.Remove(a.metaPath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Cleanup removes untracked files older than maxAge, such as previews left
// behind by a previous process. Files behind handles this allocator issued
// are only removed by Revoke.
func (a *DiskAllocator) Cleanup(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".meta")
		if _, tracked := a.files[key]; tracked {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(a.dir, entry.Name()))
		}
	}

	return nil
}

// Handler serves previews by key. Mount it with http.StripPrefix.
func (a *DiskAllocator) Handler() http.Handler {
	return serveBlobs(func(key string) (io.ReadSeekCloser, string, time.Time, error) {
		a.mu.RLock()
		meta, ok := a.files[key]
		a.mu.RUnlock()
		if !ok {
			return nil, "", time.Time{}, ErrNotFound
		}

		f, err := os.Open(a.path(key))
		if err != nil {
			return nil, "", time.Time{}, ErrNotFound
		}
		return f, meta.ContentType, meta.CreatedAt, nil
	})
}

func (a *DiskAllocator) path(key string) string {
	return filepath.Join(a.dir, key)
}

func (a *DiskAllocator) metaPath(key string) string {
	return filepath.Join(a.dir, key+".meta")
}

func (a *DiskAllocator) saveMeta(key string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(a.metaPath(key), data, 0644)
}
