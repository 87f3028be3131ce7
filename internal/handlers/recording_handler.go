package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"readquest/internal/service"
	"readquest/internal/storage"
	"readquest/internal/validation"
)

// RecordingHandler serves saved recordings and their playback
type RecordingHandler struct {
	recordingService *service.RecordingService
	maxUploadSize    int64
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordingService *service.RecordingService, maxUploadSize int64) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
		maxUploadSize:    maxUploadSize,
	}
}

type updateRecordingRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Upload saves a recording sent as multipart form data in one request.
// Fields: audio (file), title, description, duration_seconds, assignment_id.
func (h *RecordingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Recording is too large", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form", "", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondServiceError(w, "", validation.ValidationError{Field: "audio", Message: "audio file is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !storage.IsAudioExtension(ext) {
		respondServiceError(w, "", validation.ValidationError{Field: "audio", Message: "unsupported audio format"})
		return
	}

	var duration int
	if raw := r.FormValue("duration_seconds"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration < 0 {
			respondServiceError(w, "", validation.ValidationError{Field: "duration_seconds", Message: "must be a non-negative number"})
			return
		}
	}
	var assignmentID *int64
	if raw := r.FormValue("assignment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondServiceError(w, "", validation.ValidationError{Field: "assignment_id", Message: "must be a number"})
			return
		}
		assignmentID = &id
	}

	result, err := h.recordingService.Save(r.Context(), service.SaveInput{
		UserID:          user.ID,
		Title:           r.FormValue("title"),
		Description:     optionalString(r.FormValue("description")),
		DurationSeconds: duration,
		Extension:       ext,
		Body:            file,
		Size:            header.Size,
		CapturedAt:      time.Now(),
		AssignmentID:    assignmentID,
	})
	if err != nil {
		respondServiceError(w, "Error saving recording", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// List returns a page of the user's recordings
func (h *RecordingHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	recordings, err := h.recordingService.List(user.ID, limit, offset)
	if err != nil {
		respondServiceError(w, "Error listing recordings", err)
		return
	}
	respondJSON(w, http.StatusOK, recordings)
}

// Get returns one recording the user may see
func (h *RecordingHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.recordingService.Get(user.ID, id)
	if err != nil {
		respondServiceError(w, "Error loading recording", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Update edits a recording's title and description
func (h *RecordingHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateRecordingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.recordingService.Update(user.ID, id, req.Title, req.Description)
	if err != nil {
		respondServiceError(w, "Error updating recording", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Delete removes a recording and its stored audio
func (h *RecordingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.recordingService.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, "Error deleting recording", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Play starts playback of a recording and returns its signed URL
func (h *RecordingHandler) Play(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	playback, err := h.recordingService.Play(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, "Error starting playback", err)
		return
	}
	respondJSON(w, http.StatusOK, playback)
}

// StopPlayback stops the user's active playback
func (h *RecordingHandler) StopPlayback(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"stopped": h.recordingService.StopPlayback(user.ID)})
}

// CurrentPlayback returns the user's active playback, 204 when idle
func (h *RecordingHandler) CurrentPlayback(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	playback, ok := h.recordingService.CurrentPlayback(user.ID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, playback)
}
