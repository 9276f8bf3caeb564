package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/storage"
)

// ObjectHandler serves stored note images.
type ObjectHandler struct {
	store *storage.FS
}

// NewObjectHandler creates a handler over the local object store.
func NewObjectHandler(store *storage.FS) *ObjectHandler {
	return &ObjectHandler{store: store}
}

// ServeObject handles GET /objects/*. Only image content is served
// inline; anything else is sent as an opaque download.
func (h *ObjectHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	// chi routes on RawPath when the request carries one, leaving the
	// parameter escaped; otherwise it is already decoded.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}

	abs, err := h.store.Path(key)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid key"))
		return
	}
	info, err := h.store.Stat(r.Context(), key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	contentType, err := sniff(f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	if strings.HasPrefix(contentType, "image/") {
		w.Header().Set("Content-Type", contentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", "attachment")
	}
	w.Header().Set("ETag", `"`+info.Checksum+`"`)
	w.Header().Set("Cache-Control", "private, no-cache")
	http.ServeContent(w, r, "", info.UpdatedAt, f)
}

// sniff detects the content type from the first 512 bytes and rewinds f.
func sniff(f io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
