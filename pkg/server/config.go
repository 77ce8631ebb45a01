package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/filestage/pkg/middleware"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

// Config configures a Server.
type Config struct {
	// Address is the listen address used by ListenAndServe.
	Address string

	// Policy is given to every new session.
	Policy policy.Policy

	// Allocator backs preview handles for all sessions.
	// If nil, an in-memory allocator is created and served under
	// PreviewPrefix.
	Allocator preview.Allocator

	// PreviewHandler serves preview bytes under PreviewPrefix.
	// Leave nil for backends that serve their own URLs (s3).
	PreviewHandler http.Handler

	// PreviewPrefix is the URL prefix for previews (default: "/previews").
	PreviewPrefix string

	// SessionTTL is how long a session may stay idle before it is closed.
	SessionTTL time.Duration

	// CleanupInterval is how often idle sessions are swept.
	CleanupInterval time.Duration

	// MaxRequestBytes caps multipart request bodies.
	MaxRequestBytes int64

	// SessionsPerMinute limits session creation per client IP. Zero
	// disables the limit.
	SessionsPerMinute int

	// SessionBurst is how many sessions a client may create at once.
	SessionBurst int

	// MetricsPath is where Gatherer is exposed. Empty disables the endpoint.
	MetricsPath string

	// Gatherer is exposed at MetricsPath.
	Gatherer prometheus.Gatherer

	// StageMetrics is shared by every session's stager. May be nil.
	StageMetrics *telemetry.Metrics

	// HTTPMetrics records request and session metrics. May be nil.
	HTTPMetrics *middleware.Metrics

	// CheckOrigin validates websocket origins. Default: same origin only.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds a single feed write.
	WriteTimeout time.Duration

	// PingInterval is how often the feed pings the client.
	PingInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	ShutdownTimeout time.Duration

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		Policy:          policy.Policy{MaxSizeBytes: 10 << 20, AcceptPatterns: []string{policy.Wildcard}},
		PreviewPrefix:   "/previews",
		SessionTTL:      30 * time.Minute,
		CleanupInterval: time.Minute,
		MaxRequestBytes: 64 << 20,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// applyDefaults fills in defaults for any unset fields.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.Policy.MaxSizeBytes == 0 {
		c.Policy.MaxSizeBytes = defaults.Policy.MaxSizeBytes
	}
	if c.PreviewPrefix == "" {
		c.PreviewPrefix = defaults.PreviewPrefix
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaults.SessionTTL
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.MaxRequestBytes == 0 {
		c.MaxRequestBytes = defaults.MaxRequestBytes
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = defaults.PingInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
