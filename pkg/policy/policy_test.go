package policy_test

import (
	"errors"
	"io"
	"testing"

	"github.com/vango-dev/filestage/pkg/policy"
)

func mustPolicy(t *testing.T, p policy.Policy) *policy.Policy {
	t.Helper()
	pol, err := policy.New(p)
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	return pol
}

func TestNew_RejectsNonPositiveLimit(t *testing.T) {
	for _, size := range []int64{0, -1} {
		_, err := policy.New(policy.Policy{MaxSizeBytes: size})
		if !errors.Is(err, policy.ErrInvalidPolicy) {
			t.Errorf("MaxSizeBytes=%d: err = %v, want ErrInvalidPolicy", size, err)
		}
	}
}

func TestNew_RejectsBlankPattern(t *testing.T) {
	_, err := policy.New(policy.Policy{MaxSizeBytes: 1, AcceptPatterns: []string{"image/*", "  "}})
	if !errors.Is(err, policy.ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
}

func TestNew_CopiesPatterns(t *testing.T) {
	patterns := []string{"image/*"}
	p := mustPolicy(t, policy.Policy{MaxSizeBytes: 10, AcceptPatterns: patterns})

	patterns[0] = "application/pdf"

	if p.AcceptPatterns[0] != "image/*" {
		t.Errorf("policy pattern mutated through caller slice: %q", p.AcceptPatterns[0])
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		patterns []string
		want     bool
	}{
		{"exact", "application/pdf", []string{"application/pdf"}, true},
		{"category wildcard", "image/png", []string{"image/*"}, true},
		{"other category", "video/mp4", []string{"image/*"}, false},
		{"prefix is not category", "imagery/png", []string{"image/*"}, false},
		{"case insensitive", "IMAGE/PNG", []string{"image/png"}, true},
		{"parameters ignored", "text/plain; charset=utf-8", []string{"text/plain"}, true},
		{"universal star", "application/zip", []string{"*"}, true},
		{"universal star slash star", "application/zip", []string{"image/*", "*/*"}, true},
		{"empty list accepts all", "application/zip", nil, true},
		{"empty type rejected", "", []string{"image/*"}, false},
		{"second pattern", "application/pdf", []string{"image/*", "application/pdf"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Matches(tt.mimeType, tt.patterns); got != tt.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tt.mimeType, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestFormatLimit(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1_000_000, "1MB"},
		{1 << 20, "1MB"},
		{10 << 20, "10MB"},
		{2_500_000, "2MB"},
		{100_000, "100 kB"},
	}
	for _, tt := range tests {
		if got := policy.FormatLimit(tt.n); got != tt.want {
			t.Errorf("FormatLimit(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	n, err := policy.ParseSize("1MB")
	if err != nil {
		t.Fatalf("ParseSize: %v", err)
	}
	if n != 1_000_000 {
		t.Errorf("ParseSize(1MB) = %d, want 1000000", n)
	}

	n, err = policy.ParseSize("2MiB")
	if err != nil {
		t.Fatalf("ParseSize: %v", err)
	}
	if n != 2<<20 {
		t.Errorf("ParseSize(2MiB) = %d, want %d", n, 2<<20)
	}

	if _, err := policy.ParseSize("lots"); err == nil {
		t.Error("expected error for unparseable size")
	}
}

func TestFile_Open(t *testing.T) {
	f := policy.File{Name: "a.txt", Source: policy.BytesSource([]byte("hello"))}
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if _, err := (policy.File{}).Open(); !errors.Is(err, policy.ErrNoSource) {
		t.Errorf("Open without source: err = %v, want ErrNoSource", err)
	}
}

func TestIsImage(t *testing.T) {
	if !policy.IsImage("image/png") || !policy.IsImage(" Image/JPEG") {
		t.Error("expected image types to be detected")
	}
	if policy.IsImage("application/pdf") || policy.IsImage("") {
		t.Error("non-image types reported as images")
	}
	if !(policy.File{MIMEType: "image/gif"}).IsImage() {
		t.Error("File.IsImage should follow the MIME type")
	}
}
