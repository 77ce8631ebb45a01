package server

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/vango-dev/filestage/pkg/policy"
)

// filesField is the multipart field carrying the files.
const filesField = "files"

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

// readFiles parses the multipart "files" parts of r into candidates.
// The body must already be limited with http.MaxBytesReader.
func readFiles(r *http.Request, maxMemory int64) ([]policy.File, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[filesField]
	files := make([]policy.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) (policy.File, error) {
	src, err := fh.Open()
	if err != nil {
		return policy.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return policy.File{}, err
	}

	return policy.File{
		Name:     fh.Filename,
		MIMEType: partType(fh.Header.Get("Content-Type"), data),
		Size:     int64(len(data)),
		Source:   policy.BytesSource(data),
	}, nil
}

// partType returns the declared MIME type without parameters, falling
// back to content sniffing when the browser sent none.
func partType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	if len(data) == 0 {
		return ""
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data[:min(len(data), sniffLen)]))
	return sniffed
}
