package filestage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/filestage/pkg/input"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
	"github.com/vango-dev/filestage/pkg/stage"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

// previewFailureMessage is shown when a batch passed validation but could
// not be staged.
const previewFailureMessage = "could not prepare a preview for the selected files"

// Stager is one file-staging component instance.
// All methods are safe for concurrent use; operations are serialised.
type Stager struct {
	policy   *policy.Policy
	store    *stage.Store
	previews *preview.Manager
	drag     *input.DragMachine
	picker   *input.Picker

	onError func(string)
	onBatch func(Result)
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	mu        sync.Mutex
	errMsg    string
	closed    bool
	closeOnce sync.Once
}

// Result describes one submitted batch.
type Result struct {
	// Verdict is the validation outcome of the batch.
	Verdict policy.Verdict

	// Added holds the entries created by the batch.
	Added []stage.Entry
}

// Discarded reports how many accepted files were not staged because a
// single-mode stager keeps only the first one.
func (r Result) Discarded() int {
	return len(r.Verdict.Accepted) - len(r.Added)
}

// New creates a Stager. InitialEntries are staged before New returns.
func New(ctx context.Context, opts Options) (*Stager, error) {
	pol, err := opts.Policy()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "filestage", "mode", pol.Mode())

	alloc := opts.Allocator
	if alloc == nil {
		alloc = preview.NewMemoryAllocator(DefaultPreviewPrefix)
	}

	s := &Stager{
		policy:  pol,
		onError: opts.OnError,
		onBatch: opts.OnBatch,
		logger:  logger,
		metrics: opts.Metrics,
		tracer:  telemetry.Tracer(opts.TracerName),
	}
	s.previews = preview.NewManager(alloc,
		preview.WithLogger(logger),
		preview.WithMetrics(opts.Metrics),
	)
	s.store = stage.NewStore(stage.ModeOf(pol.AllowMultiple), s.previews, opts.OnChange)
	s.drag = input.NewDragMachine(s.submitBatch)
	s.picker = input.NewPicker(s.submitBatch)

	if err := s.store.Seed(ctx, opts.InitialEntries); err != nil {
		return nil, err
	}
	return s, nil
}

// Submit evaluates files and stages the accepted ones.
//
// The visible error is set to the batch's rejection reason when any file
// was rejected, and cleared when every file was accepted. An empty batch
// changes nothing.
//
// A non-nil error means the stager is closed or a preview could not be
// allocated; the store is unchanged in both cases.
func (s *Stager) Submit(ctx context.Context, files []policy.File) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(ctx, "direct", files)
}

// Pick handles a file-picker change event.
func (s *Stager) Pick(ctx context.Context, files []policy.File) error {
	return s.picker.Change(withChannel(ctx, "picker"), files)
}

// Drag handles a drag-and-drop event. Drops are staged like picked files.
// It reports whether ev was a drop that delivered its files; a drop
// without a preceding dragenter is ignored.
func (s *Stager) Drag(ctx context.Context, ev *input.DragEvent) (bool, error) {
	if s.isClosed() {
		ev.PreventDefault()
		return false, ErrClosed
	}
	return s.drag.Handle(withChannel(ctx, "drop"), ev)
}

// Dragging reports whether a drag is hovering over the drop zone.
func (s *Stager) Dragging() bool {
	return s.drag.State() == input.Dragging
}

// Remove removes the entry with id. It reports whether an entry was
// removed; an unknown id is not an error.
func (s *Stager) Remove(ctx context.Context, id stage.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	ctx, span := s.tracer.Start(ctx, "filestage.remove",
		trace.WithAttributes(telemetry.AttrEntryID.String(id.String())),
	)
	removed := s.store.Remove(ctx, id)
	if removed {
		s.metrics.RecordRemoved()
		s.logger.Debug("entry removed", "id", id.String())
	}
	telemetry.EndSpan(span, nil)
	return removed, nil
}

// Clear removes every entry and clears the visible error.
func (s *Stager) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.store.Clear(ctx)
	s.setErrorLocked("")
	return nil
}

// Close tears the stager down: every preview is released and the store is
// cleared. Close runs once; later calls are no-ops.
func (s *Stager) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.drag.Reset()
		s.store.Clear(ctx)
		s.logger.Debug("stager closed")
	})
}

// Err returns the visible error message, or "" if there is none.
func (s *Stager) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Entries returns a snapshot of the staged entries.
func (s *Stager) Entries() []stage.Entry {
	return s.store.Entries()
}

// Value returns the current projection.
func (s *Stager) Value() stage.Value {
	return s.store.Value()
}

// Policy returns a copy of the stager's policy.
func (s *Stager) Policy() policy.Policy {
	p := *s.policy
	p.AcceptPatterns = append([]string(nil), s.policy.AcceptPatterns...)
	return p
}

// LivePreviews returns the number of preview handles currently allocated.
func (s *Stager) LivePreviews() int {
	return s.previews.Live()
}

func (s *Stager) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// submitBatch is the input sink shared by both capture channels.
func (s *Stager) submitBatch(ctx context.Context, files []policy.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.submitLocked(ctx, channelOf(ctx), files)
	return err
}

func (s *Stager) submitLocked(ctx context.Context, channel string, files []policy.File) (Result, error) {
	if s.closed {
		return Result{}, ErrClosed
	}
	if len(files) == 0 {
		return Result{}, nil
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "filestage.submit",
		trace.WithAttributes(
			telemetry.AttrMode.String(s.policy.Mode()),
			telemetry.AttrChannel.String(channel),
			telemetry.AttrFiles.Int(len(files)),
		),
	)

	verdict := policy.Evaluate(files, s.policy)
	for _, r := range verdict.Rejections {
		s.metrics.RecordRejected(r.Kind.String())
		s.logger.Info("file rejected",
			"file", r.File.Name,
			"type", r.File.MIMEType,
			"size", humanize.Bytes(uint64(max(r.File.Size, 0))),
			"reason", r.Kind.String(),
		)
	}

	added, err := s.store.Apply(ctx, verdict.Accepted)
	if err != nil {
		s.logger.Error("staging failed", "channel", channel, "error", err)
		s.setErrorLocked(previewFailureMessage)
		telemetry.EndSpan(span, err)
		return Result{Verdict: verdict}, err
	}

	switch {
	case verdict.Rejected():
		s.setErrorLocked(verdict.Reason)
	case len(added) > 0:
		s.setErrorLocked("")
	}

	for _, e := range added {
		s.logger.Debug("file staged",
			"id", e.ID.String(),
			"file", e.File.Name,
			"size", humanize.Bytes(uint64(max(e.File.Size, 0))),
			"preview", e.Preview != nil,
		)
	}
	s.metrics.RecordAccepted(len(added))
	s.metrics.ObserveBatch(time.Since(start))

	span.SetAttributes(
		telemetry.AttrAccepted.Int(len(added)),
		telemetry.AttrRejected.Int(len(verdict.Rejections)),
		telemetry.AttrEntries.Int(s.store.Len()),
	)
	telemetry.EndSpan(span, nil)

	res := Result{Verdict: verdict, Added: added}
	if n := res.Discarded(); n > 0 {
		s.logger.Info("single mode kept the first file", "discarded", n)
	}
	if s.onBatch != nil {
		s.onBatch(res)
	}
	return res, nil
}

func (s *Stager) setErrorLocked(msg string) {
	if s.errMsg == msg {
		return
	}
	s.errMsg = msg
	if s.onError != nil {
		s.onError(msg)
	}
}

type channelKey struct{}

func withChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func channelOf(ctx context.Context) string {
	if c, ok := ctx.Value(channelKey{}).(string); ok {
		return c
	}
	return "direct"
}
