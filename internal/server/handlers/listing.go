// internal/server/handlers/listing.go

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"casaview/internal/adapter/media"
	"casaview/internal/adapter/storage"
	"casaview/internal/domain/listing"
	"casaview/internal/service/catalog"
)

// maxUploadBytes bounds a single multipart submission
const maxUploadBytes = 32 << 20

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	service *catalog.Service
}

// NewListingHandler creates a new listing handler
func NewListingHandler(service *catalog.Service) *ListingHandler {
	return &ListingHandler{
		service: service,
	}
}

// ListListings returns the full listing set, newest first
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.Listings(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list listings", err)
		return
	}

	if listings == nil {
		listings = []listing.Listing{}
	}
	respondWithJSON(w, http.StatusOK, listings)
}

// GetFeatured returns featured listings
func (h *ListingHandler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	limit := 6
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}

	listings, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list featured listings", err)
		return
	}

	if listings == nil {
		listings = []listing.Listing{}
	}
	respondWithJSON(w, http.StatusOK, listings)
}

// GetListing returns a specific listing by ID
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing listing ID", nil)
		return
	}

	l, err := h.service.Listing(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Listing not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get listing", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, l)
}

// CreateListing creates a new listing. Accepts either a JSON body or a
// multipart form with a "listing" JSON part plus "images" file parts.
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var input catalog.NewListing
	files, err := decodeListingRequest(r, &input)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.service.Create(r.Context(), input, files)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to add listing", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, l)
}

// UpdateListing applies a partial update, optionally with new images
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing listing ID", nil)
		return
	}

	var patch listing.Patch
	files, err := decodeListingRequest(r, &patch)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.service.Update(r.Context(), id, patch, files); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Listing not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to update listing", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"id": id})
}

// DeleteListing removes a listing and its stored images
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing listing ID", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Listing not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to delete listing", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BatchUpdate applies a list of partial updates as one atomic commit
func (h *ListingHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var ops []listing.PatchOp
	if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(ops) == 0 {
		respondWithError(w, http.StatusBadRequest, "Empty batch", nil)
		return
	}

	if err := h.service.BatchUpdate(r.Context(), ops); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Listing in batch not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Batch update failed", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"updated": len(ops)})
}

// decodeListingRequest decodes the listing fields into dst and collects any
// uploaded image files. Multipart submissions carry the fields as JSON in the
// "listing" form value; plain JSON bodies carry no files.
func decodeListingRequest(r *http.Request, dst interface{}) ([]media.File, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("decoding JSON body: %w", err)
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	payload := r.FormValue("listing")
	if payload == "" {
		return nil, fmt.Errorf("missing listing form field")
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return nil, fmt.Errorf("decoding listing form field: %w", err)
	}

	var files []media.File
	for _, header := range r.MultipartForm.File["images"] {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %s: %w", header.Filename, err)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", header.Filename, err)
		}

		files = append(files, media.File{Name: header.Filename, Data: data})
	}

	return files, nil
}
