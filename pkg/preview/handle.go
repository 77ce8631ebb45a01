package preview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	ferrors "github.com/vango-dev/filestage/internal/errors"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

// ErrNotFound is returned by backends when a preview key doesn't exist.
var ErrNotFound = errors.New("preview: not found")

// Allocator creates and revokes the resource behind a preview handle.
type Allocator interface {
	// Allocate stores f under key and returns a URL that displays it.
	Allocate(ctx context.Context, key string, f policy.File) (url string, err error)

	// Revoke invalidates the resource stored under key.
	Revoke(ctx context.Context, key string) error
}

// Handle is a live reference to a preview resource.
type Handle struct {
	key string

	// URL displays the preview.
	URL string

	// Name is the filename the handle was allocated for.
	Name string
}

// Key returns the allocator key of the handle.
func (h *Handle) Key() string {
	if h == nil {
		return ""
	}
	return h.key
}

// Manager tracks live preview handles.
type Manager struct {
	alloc   Allocator
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu   sync.Mutex
	live map[string]*Handle
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *telemetry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a Manager backed by alloc.
func NewManager(alloc Allocator, opts ...ManagerOption) *Manager {
	m := &Manager{
		alloc:  alloc,
		logger: slog.Default().With("component", "preview"),
		live:   make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire allocates a preview for f.
func (m *Manager) Acquire(ctx context.Context, f policy.File) (*Handle, error) {
	key := uuid.NewString()
	url, err := m.alloc.Allocate(ctx, key, f)
	if err != nil {
		m.metrics.RecordAcquireError()
		return nil, ferrors.New("S001").
			WithDetail("allocating preview for " + f.Name).
			Wrap(err)
	}

	h := &Handle{key: key, URL: url, Name: f.Name}

	m.mu.Lock()
	m.live[key] = h
	m.mu.Unlock()
	m.metrics.PreviewAcquired()

	m.logger.Debug("preview acquired", "key", key, "file", f.Name)
	return h, nil
}

// Release revokes h. Releasing nil, an unknown handle or an already
// released handle is a no-op.
//
// Once Release starts, the handle counts as released even if the backend
// fails to revoke it; the failure is logged.
func (m *Manager) Release(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}

	m.mu.Lock()
	cur, ok := m.live[h.key]
	if ok && cur == h {
		delete(m.live, h.key)
	}
	m.mu.Unlock()

	if !ok || cur != h {
		return
	}
	m.metrics.PreviewReleased()

	if err := m.alloc.Revoke(ctx, h.key); err != nil {
		m.logger.Warn("preview revoke failed", "key", h.key, "file", h.Name, "error", err)
		return
	}
	m.logger.Debug("preview released", "key", h.key, "file", h.Name)
}

// IsLive reports whether h has been acquired and not yet released.
func (m *Manager) IsLive(h *Handle) bool {
	if h == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[h.key] == h
}

// Live returns the number of live handles.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
