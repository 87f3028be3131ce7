package handlers

import (
	"errors"
	"net/http"

	"readquest/internal/audio"
	"readquest/internal/service"
	"readquest/internal/storage"
	"readquest/internal/validation"
)

// CaptureHandler drives the per-user recording capture
type CaptureHandler struct {
	captures         *audio.CaptureManager
	recordingService *service.RecordingService
	maxUploadSize    int64
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(captures *audio.CaptureManager, recordingService *service.RecordingService, maxUploadSize int64) *CaptureHandler {
	return &CaptureHandler{
		captures:         captures,
		recordingService: recordingService,
		maxUploadSize:    maxUploadSize,
	}
}

type startCaptureRequest struct {
	Extension string `json:"extension"`
}

type saveCaptureRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	AssignmentID *int64  `json:"assignment_id,omitempty"`
}

// Current returns the state of the user's capture, idle when there is none
func (h *CaptureHandler) Current(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	view, err := h.captures.Get(user.ID)
	if err != nil && !errors.Is(err, audio.ErrNoCapture) {
		respondServiceError(w, "Error loading capture", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Start begins a capture
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	req := startCaptureRequest{Extension: ".m4a"}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Extension == "" {
		req.Extension = ".m4a"
	}
	if !storage.IsAudioExtension(req.Extension) {
		respondServiceError(w, "", validation.ValidationError{Field: "extension", Message: "unsupported audio format"})
		return
	}

	view, err := h.captures.Start(user.ID, req.Extension)
	if err != nil {
		respondServiceError(w, "Error starting capture", err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// Chunk appends the raw request body to a recording capture
func (h *CaptureHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	view, err := h.captures.Append(user.ID, body)
	if err != nil {
		respondServiceError(w, "Error appending to capture", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CaptureHandler) move(w http.ResponseWriter, r *http.Request, fn func(int64) (audio.CaptureView, error)) {
	user := GetUserFromContext(r.Context())
	view, err := fn(user.ID)
	if err != nil {
		respondServiceError(w, "Error updating capture", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Pause pauses the capture
func (h *CaptureHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.captures.Pause)
}

// Resume resumes a paused capture
func (h *CaptureHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.captures.Resume)
}

// Stop ends recording
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.captures.Stop)
}

// Discard drops the capture
func (h *CaptureHandler) Discard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.captures.Discard(user.ID); err != nil {
		respondServiceError(w, "Error discarding capture", err)
		return
	}
	respondJSON(w, http.StatusOK, audio.CaptureView{State: audio.StateIdle})
}

// Save uploads the stopped capture as a recording
func (h *CaptureHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req saveCaptureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.recordingService.SaveCapture(r.Context(), user.ID, req.Title, req.Description, req.AssignmentID)
	if err != nil {
		respondServiceError(w, "Error saving capture", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
