// internal/server/handlers/media.go

package handlers

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"casaview/internal/adapter/media"
)

// MediaHandler serves stored listing images back over the public URL surface
type MediaHandler struct {
	store *media.Store
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store *media.Store) *MediaHandler {
	return &MediaHandler{
		store: store,
	}
}

// ServeObject streams the object at the wildcard path
func (h *MediaHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondWithError(w, http.StatusBadRequest, "Missing object path", nil)
		return
	}

	data, err := h.store.Open(r.Context(), key)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Object not found", nil)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
