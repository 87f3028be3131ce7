package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"readquest/internal/audio"
	"readquest/internal/service"
	"readquest/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return 0, false
	}
	return id, true
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// statusFor maps a service error to its HTTP status and client message
func statusFor(err error) (int, string) {
	switch {
	case validation.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrRecordingNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, audio.ErrNoCapture):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, audio.ErrInvalidCaptureTransition),
		errors.Is(err, audio.ErrCaptureActive),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrNotLinked),
		errors.Is(err, service.ErrNotStudent):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrLinkCodeInvalid),
		errors.Is(err, audio.ErrEmptyCapture):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, audio.ErrCaptureTooLarge), isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge, "Recording is too large"
	case errors.Is(err, service.ErrUploadFailed):
		return http.StatusBadGateway, service.ErrUploadFailed.Error()
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}

// respondServiceError writes the mapped status; unexpected errors are logged with logMsg
func respondServiceError(w http.ResponseWriter, logMsg string, err error) {
	status, msg := statusFor(err)
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, status, errorBody{Error: ve.Message, Field: ve.Field})
		return
	}
	if status >= http.StatusInternalServerError {
		respondWithError(w, status, msg, logMsg, err)
		return
	}
	respondJSON(w, status, errorBody{Error: msg})
}
