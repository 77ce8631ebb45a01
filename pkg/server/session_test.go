package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/filestage"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
)

func newTestManager(t *testing.T, ttl time.Duration) *sessionManager {
	t.Helper()
	sm := newSessionManager(ttl, time.Hour, slog.Default(), nil)
	t.Cleanup(func() { sm.shutdown(context.Background()) })
	return sm
}

func newStager(alloc preview.Allocator) func(string, *feed) (*filestage.Stager, error) {
	return func(string, *feed) (*filestage.Stager, error) {
		return filestage.New(context.Background(), filestage.Options{
			AllowMultiple: true,
			MaxSizeBytes:  1 << 20,
			Allocator:     alloc,
		})
	}
}

func TestCleanupExpired(t *testing.T) {
	sm := newTestManager(t, time.Minute)
	alloc := preview.NewMemoryAllocator("/p")

	idle, err := sm.create(newStager(alloc))
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := sm.create(newStager(alloc))
	if err != nil {
		t.Fatal(err)
	}
	idle.stager.Submit(context.Background(), []policy.File{
		{Name: "a.png", MIMEType: "image/png", Size: 3, Source: policy.BytesSource([]byte("abc"))},
	})

	now := time.Now()
	idle.touch(now.Add(-2 * time.Minute))
	fresh.touch(now)

	if n := sm.cleanupExpired(now); n != 1 {
		t.Fatalf("cleanupExpired() = %d, want 1", n)
	}
	if _, ok := sm.get(idle.ID); ok {
		t.Error("idle session still present")
	}
	if _, ok := sm.get(fresh.ID); !ok {
		t.Error("fresh session was removed")
	}
	if alloc.Len() != 0 {
		t.Errorf("expired session left %d previews", alloc.Len())
	}
}

func TestShutdownClosesAll(t *testing.T) {
	sm := newSessionManager(time.Minute, time.Hour, slog.Default(), nil)
	for i := 0; i < 3; i++ {
		if _, err := sm.create(newStager(nil)); err != nil {
			t.Fatal(err)
		}
	}
	sm.shutdown(context.Background())
	sm.shutdown(context.Background())

	if sm.count() != 0 {
		t.Errorf("count() = %d after shutdown, want 0", sm.count())
	}
}

func TestFeed_SubscribeAfterClose(t *testing.T) {
	f := newFeed(slog.Default(), nil)
	sub := f.subscribe()
	f.Emit(EventChange, []string{})
	f.close()

	if _, ok := <-sub.send; !ok {
		t.Error("queued message should drain before close")
	}
	if _, ok := <-sub.send; ok {
		t.Error("channel should be closed")
	}
	if f.subscribe() != nil {
		t.Error("subscribe after close should return nil")
	}
	f.unsubscribe(sub)
}

func TestPartType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	tests := []struct {
		declared string
		data     []byte
		want     string
	}{
		{"image/png", nil, "image/png"},
		{"text/plain; charset=utf-8", []byte("x"), "text/plain"},
		{"application/octet-stream", png, "image/png"},
		{"", png, "image/png"},
		{"", nil, ""},
		{"", []byte("hello"), "text/plain"},
	}
	for _, tt := range tests {
		if got := partType(tt.declared, tt.data); got != tt.want {
			t.Errorf("partType(%q, %q) = %q, want %q", tt.declared, tt.data, got, tt.want)
		}
	}
}

func TestCleanupExpired_WarnsSubscribers(t *testing.T) {
	sm := newTestManager(t, time.Minute)
	sess, err := sm.create(newStager(nil))
	if err != nil {
		t.Fatal(err)
	}
	sub := sess.feed.subscribe()

	now := time.Now()
	sess.touch(now.Add(-2 * time.Minute))
	sm.cleanupExpired(now)

	var events []string
	for payload := range sub.send {
		events = append(events, string(payload))
	}
	if len(events) != 2 {
		t.Fatalf("events = %q, want warning then closed", events)
	}
	if !strings.Contains(events[0], `"level":"warning"`) || !strings.Contains(events[0], "expired") {
		t.Errorf("first event = %s, want expiry warning", events[0])
	}
	if !strings.Contains(events[1], EventClosed) {
		t.Errorf("second event = %s, want %s", events[1], EventClosed)
	}
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(&Config{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	defer s.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	s.writeJSON(rec, 200, map[string]any{"ch": make(chan int)})

	if !strings.Contains(buf.String(), "failed to write response") {
		t.Errorf("log = %q, want an encode failure", buf.String())
	}
}
