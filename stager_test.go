package filestage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/filestage"
	ferrors "github.com/vango-dev/filestage/internal/errors"
	"github.com/vango-dev/filestage/pkg/input"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview/previewtest"
	"github.com/vango-dev/filestage/pkg/stage"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

type recorder struct {
	mu     sync.Mutex
	values []stage.Value
	errs   []string
}

func (r *recorder) onChange(v stage.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) onError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, msg)
}

func (r *recorder) notifications() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *recorder) last() stage.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[len(r.values)-1]
}

func file(name, mimeType string, size int64) policy.File {
	return policy.File{
		Name:     name,
		MIMEType: mimeType,
		Size:     size,
		Source:   policy.BytesSource([]byte(name)),
	}
}

func newStager(t *testing.T, multi bool, opts ...func(*filestage.Options)) (*filestage.Stager, *previewtest.Allocator, *recorder) {
	t.Helper()
	alloc := previewtest.New()
	rec := &recorder{}
	o := filestage.Options{
		AllowMultiple:  multi,
		MaxSizeBytes:   1_000_000,
		AcceptPatterns: []string{"image/*"},
		OnChange:       rec.onChange,
		OnError:        rec.onError,
		Allocator:      alloc,
	}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := filestage.New(context.Background(), o)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, alloc, rec
}

func TestScenarioPartialRejection(t *testing.T) {
	ctx := context.Background()
	s, alloc, rec := newStager(t, true)

	res, err := s.Submit(ctx, []policy.File{
		file("a.png", "image/png", 500_000),
		file("b.pdf", "application/pdf", 10_000),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(res.Verdict.Accepted) != 1 || res.Verdict.Accepted[0].Name != "a.png" {
		t.Errorf("accepted = %v, want [a.png]", res.Verdict.Accepted)
	}
	if msg := s.Err(); !strings.Contains(msg, "application/pdf") {
		t.Errorf("Err() = %q, want it to name application/pdf", msg)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	if entries[0].Preview == nil || s.LivePreviews() != 1 || alloc.Allocated() != 1 {
		t.Errorf("a.png should own exactly one live preview (live=%d)", s.LivePreviews())
	}
	if rec.notifications() != 1 {
		t.Errorf("notifications = %d, want 1", rec.notifications())
	}
	if files := rec.last().Files(); len(files) != 1 || files[0].Name != "a.png" {
		t.Errorf("projection = %v, want [a.png]", files)
	}
}

func TestScenarioSingleReplace(t *testing.T) {
	ctx := context.Background()
	s, alloc, rec := newStager(t, false)

	if _, err := s.Submit(ctx, []policy.File{file("a.png", "image/png", 500_000)}); err != nil {
		t.Fatal(err)
	}
	first := s.Entries()[0]

	if _, err := s.Submit(ctx, []policy.File{file("c.jpg", "image/jpeg", 200_000)}); err != nil {
		t.Fatal(err)
	}

	entries := s.Entries()
	if len(entries) != 1 || entries[0].File.Name != "c.jpg" {
		t.Fatalf("entries = %v, want [c.jpg]", entries)
	}
	if n := alloc.Revokes(first.Preview.Key()); n != 1 {
		t.Errorf("a.png preview revoked %d times, want 1", n)
	}
	if s.LivePreviews() != 1 {
		t.Errorf("LivePreviews() = %d, want 1", s.LivePreviews())
	}

	v := rec.last()
	if v.IsList() {
		t.Error("single mode produced a list")
	}
	if f, ok := v.File(); !ok || f.Name != "c.jpg" {
		t.Errorf("File() = %v, %v; want c.jpg", f, ok)
	}
}

func TestScenarioOversized(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newStager(t, true, func(o *filestage.Options) {
		o.AcceptPatterns = []string{"*"}
	})

	if _, err := s.Submit(ctx, []policy.File{file("keep.png", "image/png", 1000)}); err != nil {
		t.Fatal(err)
	}
	before := s.Entries()
	notified := rec.notifications()

	res, err := s.Submit(ctx, []policy.File{
		file("d.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 2_000_000),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(res.Verdict.Accepted) != 0 {
		t.Errorf("accepted = %v, want none", res.Verdict.Accepted)
	}
	msg := s.Err()
	if !strings.Contains(msg, "1MB") || !strings.Contains(msg, "d.docx") {
		t.Errorf("Err() = %q, want it to name d.docx and 1MB", msg)
	}

	after := s.Entries()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Errorf("store changed: before %v, after %v", before, after)
	}
	if rec.notifications() != notified {
		t.Error("a fully rejected batch should not notify")
	}
}

func TestScenarioTeardown(t *testing.T) {
	ctx := context.Background()
	s, alloc, rec := newStager(t, true)

	_, err := s.Submit(ctx, []policy.File{
		file("1.png", "image/png", 10),
		file("2.gif", "image/gif", 10),
		file("3.webp", "image/webp", 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.LivePreviews() != 3 {
		t.Fatalf("LivePreviews() = %d, want 3", s.LivePreviews())
	}
	notified := rec.notifications()

	s.Close(ctx)
	s.Close(ctx)

	if s.LivePreviews() != 0 {
		t.Errorf("LivePreviews() = %d after Close, want 0", s.LivePreviews())
	}
	if out := alloc.Outstanding(); len(out) != 0 {
		t.Errorf("unrevoked previews: %v", out)
	}
	if twice := alloc.DoubleRevoked(); len(twice) != 0 {
		t.Errorf("previews revoked more than once: %v", twice)
	}
	if got := rec.notifications() - notified; got != 1 {
		t.Errorf("Close notified %d times, want 1", got)
	}
}

func TestVisibleError(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newStager(t, true)

	s.Submit(ctx, []policy.File{file("x.txt", "text/plain", 1)})
	if s.Err() == "" {
		t.Fatal("rejection should set the visible error")
	}

	// An empty batch leaves the message alone.
	s.Submit(ctx, nil)
	if s.Err() == "" {
		t.Error("empty batch cleared the visible error")
	}

	s.Submit(ctx, []policy.File{file("ok.png", "image/png", 1)})
	if s.Err() != "" {
		t.Errorf("Err() = %q after a clean batch, want empty", s.Err())
	}

	if len(rec.errs) != 2 || rec.errs[1] != "" {
		t.Errorf("OnError calls = %q, want [reason, \"\"]", rec.errs)
	}
}

func TestVisibleErrorLastRejectionWins(t *testing.T) {
	s, _, _ := newStager(t, true)
	s.Submit(context.Background(), []policy.File{
		file("big.png", "image/png", 5_000_000),
		file("notes.txt", "text/plain", 1),
	})
	if msg := s.Err(); !strings.Contains(msg, "text/plain") {
		t.Errorf("Err() = %q, want the last rejection", msg)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, alloc, rec := newStager(t, true)
	s.Submit(ctx, []policy.File{file("a.png", "image/png", 1), file("b.png", "image/png", 1)})

	target := s.Entries()[0]
	notified := rec.notifications()

	removed, err := s.Remove(ctx, target.ID)
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.Remove(ctx, target.ID)
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false, nil", removed, err)
	}

	if got := rec.notifications() - notified; got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
	if alloc.Revokes(target.Preview.Key()) != 1 {
		t.Error("removed entry's preview should be revoked once")
	}
	if files := rec.last().Files(); len(files) != 1 || files[0].Name != "b.png" {
		t.Errorf("projection = %v, want [b.png]", files)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newStager(t, true)
	s.Submit(ctx, []policy.File{file("a.png", "image/png", 1), file("x.txt", "text/plain", 1)})

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if s.LivePreviews() != 0 || len(s.Entries()) != 0 {
		t.Error("Clear should empty the store and release previews")
	}
	if s.Err() != "" {
		t.Errorf("Err() = %q after Clear, want empty", s.Err())
	}
	if v := rec.last(); !v.IsList() || len(v.Files()) != 0 {
		t.Errorf("projection after Clear = %v, want empty list", v.Files())
	}
}

func TestPickAndDrag(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStager(t, true)

	if err := s.Pick(ctx, []policy.File{file("picked.png", "image/png", 1)}); err != nil {
		t.Fatal(err)
	}

	stray := &input.DragEvent{Type: input.Drop, Files: []policy.File{file("stray.png", "image/png", 1)}}
	if dropped, err := s.Drag(ctx, stray); err != nil || dropped {
		t.Fatalf("drop without dragenter = %v, %v; want ignored", dropped, err)
	}

	enter := &input.DragEvent{Type: input.DragEnter}
	if _, err := s.Drag(ctx, enter); err != nil {
		t.Fatal(err)
	}
	if !enter.DefaultPrevented() || !s.Dragging() {
		t.Error("dragenter should be prevented and start dragging")
	}

	drop := &input.DragEvent{Type: input.Drop, Files: []policy.File{file("dropped.png", "image/png", 1)}}
	if dropped, err := s.Drag(ctx, drop); err != nil || !dropped {
		t.Fatalf("drop = %v, %v; want delivered", dropped, err)
	}
	if s.Dragging() {
		t.Error("drop should end the drag")
	}

	var names []string
	for _, e := range s.Entries() {
		names = append(names, e.File.Name)
	}
	if strings.Join(names, ",") != "picked.png,dropped.png" {
		t.Errorf("entries = %v, want [picked.png dropped.png]", names)
	}
}

func TestInitialEntries(t *testing.T) {
	s, alloc, rec := newStager(t, false, func(o *filestage.Options) {
		o.InitialEntries = []policy.File{
			file("seed.png", "image/png", 50_000_000),
			file("other.png", "image/png", 1),
		}
	})

	entries := s.Entries()
	if len(entries) != 1 || entries[0].File.Name != "seed.png" {
		t.Fatalf("entries = %v, want [seed.png]", entries)
	}
	if alloc.Allocated() != 1 || s.LivePreviews() != 1 {
		t.Error("seeded image should own a preview")
	}
	if rec.notifications() != 0 {
		t.Error("seeding should not notify")
	}
	if f, ok := s.Value().File(); !ok || f.Name != "seed.png" {
		t.Errorf("Value().File() = %v, %v", f, ok)
	}
}

func TestPreviewFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s, alloc, rec := newStager(t, true)
	s.Submit(ctx, []policy.File{file("ok.png", "image/png", 1)})
	notified := rec.notifications()

	alloc.FailOn = func(f policy.File) bool { return f.Name == "bad.png" }
	_, err := s.Submit(ctx, []policy.File{file("fine.png", "image/png", 1), file("bad.png", "image/png", 1)})
	if ferrors.Code(err) != "S001" {
		t.Fatalf("Submit() error = %v, want S001", err)
	}
	if len(s.Entries()) != 1 || s.LivePreviews() != 1 {
		t.Errorf("store changed after a failed batch: %d entries, %d live", len(s.Entries()), s.LivePreviews())
	}
	if rec.notifications() != notified {
		t.Error("failed batch should not notify")
	}
	if s.Err() == "" {
		t.Error("failed batch should surface an error")
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStager(t, true)
	s.Close(ctx)

	if _, err := s.Submit(ctx, []policy.File{file("a.png", "image/png", 1)}); !errors.Is(err, filestage.ErrClosed) {
		t.Errorf("Submit() error = %v, want ErrClosed", err)
	}
	if _, err := s.Remove(ctx, 1); !errors.Is(err, filestage.ErrClosed) {
		t.Errorf("Remove() error = %v, want ErrClosed", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, filestage.ErrClosed) {
		t.Errorf("Clear() error = %v, want ErrClosed", err)
	}
	if _, err := s.Drag(ctx, &input.DragEvent{Type: input.DragEnter}); !errors.Is(err, filestage.ErrClosed) {
		t.Errorf("Drag() error = %v, want ErrClosed", err)
	}
	if err := s.Pick(ctx, []policy.File{file("a.png", "image/png", 1)}); !errors.Is(err, filestage.ErrClosed) {
		t.Errorf("Pick() error = %v, want ErrClosed", err)
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	_, err := filestage.New(context.Background(), filestage.Options{MaxSizeBytes: 0})
	if !errors.Is(err, policy.ErrInvalidPolicy) {
		t.Errorf("New() error = %v, want ErrInvalidPolicy", err)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
	s, _, _ := newStager(t, true, func(o *filestage.Options) { o.Metrics = m })

	s.Submit(context.Background(), []policy.File{
		file("a.png", "image/png", 1),
		file("b.pdf", "application/pdf", 1),
		file("huge.png", "image/png", 2_000_000),
	})

	expected := `
# HELP filestage_files_accepted_total Total number of files accepted into a staging store
# TYPE filestage_files_accepted_total counter
filestage_files_accepted_total 1
# HELP filestage_files_rejected_total Total number of files rejected by policy
# TYPE filestage_files_rejected_total counter
filestage_files_rejected_total{reason="size_exceeded"} 1
filestage_files_rejected_total{reason="type_rejected"} 1
# HELP filestage_preview_handles_live Number of preview handles currently allocated
# TYPE filestage_preview_handles_live gauge
filestage_preview_handles_live 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"filestage_files_accepted_total",
		"filestage_files_rejected_total",
		"filestage_preview_handles_live",
	)
	if err != nil {
		t.Error(err)
	}
}

func TestOnBatch(t *testing.T) {
	ctx := context.Background()
	var batches []filestage.Result
	s, _, _ := newStager(t, false, func(o *filestage.Options) {
		o.OnBatch = func(r filestage.Result) { batches = append(batches, r) }
	})

	s.Submit(ctx, nil)
	if len(batches) != 0 {
		t.Fatalf("empty batch reported %d times", len(batches))
	}

	if _, err := s.Submit(ctx, []policy.File{
		file("first.png", "image/png", 1),
		file("second.png", "image/png", 1),
		file("notes.txt", "text/plain", 1),
	}); err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 {
		t.Fatalf("OnBatch calls = %d, want 1", len(batches))
	}
	got := batches[0]
	if len(got.Added) != 1 || got.Added[0].File.Name != "first.png" {
		t.Errorf("Added = %v, want [first.png]", got.Added)
	}
	if got.Discarded() != 1 {
		t.Errorf("Discarded() = %d, want 1", got.Discarded())
	}
	if !got.Verdict.Rejected() {
		t.Error("verdict should carry the notes.txt rejection")
	}
}
