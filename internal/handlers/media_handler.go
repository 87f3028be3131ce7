package handlers

import (
	"errors"
	"net/http"
	"path"

	"readquest/internal/security"
	"readquest/internal/storage"
)

// MediaHandler serves objects of the local store behind signed URLs
type MediaHandler struct {
	store *storage.LocalStore
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store *storage.LocalStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve streams the object named by the path after verifying its signature
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	objectPath := r.PathValue("path")
	query := r.URL.Query()

	f, err := h.store.Open(objectPath, query.Get("expires"), query.Get("sig"))
	switch {
	case errors.Is(err, security.ErrSignatureExpired):
		respondWithError(w, http.StatusForbidden, "Link expired", "", nil)
		return
	case errors.Is(err, security.ErrSignatureInvalid), errors.Is(err, storage.ErrInvalidPath):
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
		return
	case errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found", "", nil)
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error opening media", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error reading media", err)
		return
	}
	w.Header().Set("Content-Type", storage.ContentTypeFor(path.Ext(objectPath)))
	http.ServeContent(w, r, path.Base(objectPath), info.ModTime(), f)
}
