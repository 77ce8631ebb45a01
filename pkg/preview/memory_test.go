package preview_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
)

func TestMemoryAllocator_ServeAndRevoke(t *testing.T) {
	ctx := context.Background()
	alloc := preview.NewMemoryAllocator("/previews/")

	url, err := alloc.Allocate(ctx, "k1", image("a.png"))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if url != "/previews/k1" {
		t.Errorf("url = %q, want /previews/k1", url)
	}

	srv := httptest.NewServer(http.StripPrefix("/previews", alloc.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "png" {
		t.Errorf("body = %q, want png", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}

	if err := alloc.Revoke(ctx, "k1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if alloc.Len() != 0 {
		t.Errorf("Len = %d, want 0", alloc.Len())
	}

	resp, err = http.Get(srv.URL + url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after revoke = %d, want 404", resp.StatusCode)
	}

	if err := alloc.Revoke(ctx, "k1"); !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("second Revoke err = %v, want ErrNotFound", err)
	}
}

func TestMemoryAllocator_NoSource(t *testing.T) {
	alloc := preview.NewMemoryAllocator("/p")

	_, err := alloc.Allocate(context.Background(), "k", policy.File{Name: "x.png", MIMEType: "image/png"})
	if !errors.Is(err, policy.ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}

func TestPreviewHandler_RejectsBadRequests(t *testing.T) {
	h := preview.NewMemoryAllocator("/p").Handler()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"post", http.MethodPost, "/k", http.StatusMethodNotAllowed},
		{"empty key", http.MethodGet, "/", http.StatusNotFound},
		{"nested", http.MethodGet, "/a/b", http.StatusNotFound},
		{"unknown", http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("")))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
