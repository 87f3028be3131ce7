package handlers

import (
	"net/http"

	"readquest/internal/models"
	"readquest/internal/service"
)

// AssignmentHandler serves reading assignments
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

type completeRequest struct {
	RecordingID int64 `json:"recording_id"`
}

// Create sets a new assignment for a linked student
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req service.CreateAssignmentInput
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Create(user.ID, req)
	if err != nil {
		respondServiceError(w, "Error creating assignment", err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// List returns the assignments set by a parent or set for a student,
// filtered by ?status= when given
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	status := models.AssignmentStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.AssignmentPending, models.AssignmentCompleted, models.AssignmentReviewed:
	default:
		respondWithError(w, http.StatusBadRequest, "Unknown status", "", nil)
		return
	}

	var (
		list []models.ReadingAssignment
		err  error
	)
	if user.IsParent() {
		list, err = h.assignmentService.ListForParent(user.ID, status)
	} else {
		list, err = h.assignmentService.ListForStudent(user.ID, status)
	}
	if err != nil {
		respondServiceError(w, "Error listing assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Complete links one of the student's recordings to a pending assignment
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Complete(r.Context(), user.ID, id, req.RecordingID)
	if err != nil {
		respondServiceError(w, "Error completing assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// Review records the parent's rating of a completed assignment
func (h *AssignmentHandler) Review(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.Review
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Review(user.ID, id, req)
	if err != nil {
		respondServiceError(w, "Error reviewing assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// Recording returns the recording linked to an assignment
func (h *AssignmentHandler) Recording(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.assignmentService.Recording(user.ID, id)
	if err != nil {
		respondServiceError(w, "Error loading assignment recording", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
