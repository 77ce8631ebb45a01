package filestage

import (
	"log/slog"

	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
	"github.com/vango-dev/filestage/pkg/stage"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Options configures a Stager. It is read once by New.
type Options struct {
	// AllowMultiple selects multi mode (append) over single mode (replace).
	AllowMultiple bool

	// MaxSizeBytes is the largest accepted file. Required.
	MaxSizeBytes int64

	// AcceptPatterns is the MIME allowlist, e.g. {"image/*", "application/pdf"}.
	// "*" or an empty list accepts every type.
	AcceptPatterns []string

	// InitialEntries pre-seed the store. They are not validated and do not
	// trigger OnChange. In single mode only the first one is kept.
	InitialEntries []policy.File

	// OnChange is called after every completed mutation with the current
	// projection. It runs synchronously and must not call back into the
	// Stager.
	OnChange stage.Observer

	// OnError is called whenever the visible error message changes; an
	// empty string means the error was cleared. Same rules as OnChange.
	OnError func(message string)

	// OnBatch is called after every staged batch that was not empty. Same
	// rules as OnChange.
	OnBatch func(Result)

	// Allocator backs preview handles.
	// If nil, an in-memory allocator with URLs under DefaultPreviewPrefix is
	// used.
	Allocator preview.Allocator

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics receives counters and gauges. May be nil.
	Metrics *telemetry.Metrics

	// TracerName names the OpenTelemetry tracer (default: "filestage").
	TracerName string
}

// DefaultPreviewPrefix is the URL prefix of the default preview allocator.
const DefaultPreviewPrefix = "/previews"

// Policy returns the acceptance policy described by o.
func (o Options) Policy() (*policy.Policy, error) {
	return policy.New(policy.Policy{
		MaxSizeBytes:   o.MaxSizeBytes,
		AcceptPatterns: o.AcceptPatterns,
		AllowMultiple:  o.AllowMultiple,
	})
}
