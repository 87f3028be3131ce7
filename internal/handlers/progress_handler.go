package handlers

import (
	"log"
	"net/http"
	"strconv"

	"readquest/internal/service"
)

// ProgressHandler serves student progress, streaks and achievements
type ProgressHandler struct {
	progressService    *service.ProgressService
	achievementService *service.AchievementService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, achievementService *service.AchievementService) *ProgressHandler {
	return &ProgressHandler{
		progressService:    progressService,
		achievementService: achievementService,
	}
}

// Progress returns the signed-in user's progress snapshot
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	progress, err := h.progressService.GetStudentProgress(user.ID)
	if err != nil {
		respondServiceError(w, "Error loading progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// StreakDays returns the latest streak ledger entries
func (h *ProgressHandler) StreakDays(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	days, err := h.progressService.RecentDays(user.ID, limit)
	if err != nil {
		respondServiceError(w, "Error loading streak days", err)
		return
	}
	respondJSON(w, http.StatusOK, days)
}

// Achievements lists the catalog with the user's standing on each entry
func (h *ProgressHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	list, err := h.achievementService.ListWithStatus(user.ID)
	if err != nil {
		respondServiceError(w, "Error loading achievements", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// CheckAchievements grants whatever the user's stats now satisfy
func (h *ProgressHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	result, err := h.achievementService.CheckAndAward(user.ID)
	if result == nil {
		respondServiceError(w, "Error checking achievements", err)
		return
	}
	if err != nil {
		log.Printf("Some achievements for user %d were not granted: %v", user.ID, err)
	}
	respondJSON(w, http.StatusOK, result)
}
