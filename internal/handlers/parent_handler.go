package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"readquest/internal/report"
	"readquest/internal/service"
)

// ParentHandler handles family links and the parent dashboard
type ParentHandler struct {
	familyService    *service.FamilyService
	dashboardService *service.DashboardService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(familyService *service.FamilyService, dashboardService *service.DashboardService) *ParentHandler {
	return &ParentHandler{
		familyService:    familyService,
		dashboardService: dashboardService,
	}
}

type linkRequest struct {
	Code string `json:"code"`
}

// CreateLinkCode issues a code the parent hands to a student
func (h *ParentHandler) CreateLinkCode(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	lc, err := h.familyService.CreateLinkCode(user.ID)
	if err != nil {
		respondServiceError(w, "Error creating link code", err)
		return
	}
	respondJSON(w, http.StatusCreated, lc)
}

// Link redeems a parent's code for the signed-in student
func (h *ParentHandler) Link(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lc, err := h.familyService.RedeemLinkCode(user, req.Code)
	if err != nil {
		respondServiceError(w, "Error redeeming link code", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"parent_id": lc.ParentID})
}

// Children lists the students linked to the parent
func (h *ParentHandler) Children(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	children, err := h.familyService.Children(user.ID)
	if err != nil {
		respondServiceError(w, "Error listing children", err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// Parents lists the parents the signed-in student is linked to
func (h *ParentHandler) Parents(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	parents, err := h.familyService.Parents(user.ID)
	if err != nil {
		respondServiceError(w, "Error listing parents", err)
		return
	}
	respondJSON(w, http.StatusOK, parents)
}

// Unlink removes a student from the parent's family
func (h *ParentHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	studentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.familyService.Unlink(user.ID, studentID); err != nil {
		respondServiceError(w, "Error unlinking student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns one summary per linked child
func (h *ParentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	summaries, err := h.dashboardService.Dashboard(user.ID)
	if err != nil {
		respondServiceError(w, "Error loading dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// Report downloads the dashboard as an Excel workbook
func (h *ParentHandler) Report(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	summaries, err := h.dashboardService.Dashboard(user.ID)
	if err != nil {
		respondServiceError(w, "Error loading dashboard", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteDashboard(&buf, summaries); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error building report", err)
		return
	}

	filename := fmt.Sprintf("readquest-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
