package preview

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// blobOpener opens the preview content stored under key.
type blobOpener func(key string) (content io.ReadSeekCloser, contentType string, modTime time.Time, err error)

// serveBlobs returns a handler serving GET /<key> from open.
func serveBlobs(open blobOpener) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if key == "" || strings.Contains(key, "/") {
			http.NotFound(w, r)
			return
		}

		content, contentType, modTime, err := open(key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer content.Close()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		// Revoked previews must not outlive their handle in a cache.
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, key, modTime, content)
	})
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

func joinURL(prefix, key string) string {
	return strings.TrimRight(prefix, "/") + "/" + key
}
