package policy

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// ErrNoSource is returned by File.Open when the file has no byte source.
var ErrNoSource = errors.New("policy: file has no source")

// Source gives access to a file's raw content.
// Hosts supply one per captured file (a multipart part, a path on disk, a
// buffer); the stager treats it as opaque.
type Source interface {
	Open() (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (io.ReadCloser, error)

func (f SourceFunc) Open() (io.ReadCloser, error) {
	return f()
}

// BytesSource returns a Source serving b.
func BytesSource(b []byte) Source {
	return SourceFunc(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}

// File is a candidate offered for validation.
type File struct {
	// Name is the client-side filename.
	Name string

	// MIMEType is the declared content type, e.g. "image/png".
	MIMEType string

	// Size is the file size in bytes.
	Size int64

	// Source provides the file's bytes. May be nil for metadata-only files.
	Source Source
}

// Open opens the file's content.
func (f File) Open() (io.ReadCloser, error) {
	if f.Source == nil {
		return nil, ErrNoSource
	}
	return f.Source.Open()
}

// IsImage reports whether the file's MIME type is in the image category.
func (f File) IsImage() bool {
	return IsImage(f.MIMEType)
}

// IsImage reports whether mimeType starts with "image/".
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
