package models

import "time"

// RequirementType names the stat an achievement threshold is measured against
type RequirementType string

const (
	RequirementTotalRecordings RequirementType = "total_recordings"
	RequirementStreak          RequirementType = "streak"
	RequirementPoints          RequirementType = "points"
	RequirementPerfectWeek     RequirementType = "perfect_week"
)

// Achievement is a catalog entry unlocked when a stat crosses a threshold
type Achievement struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon"`
	RequirementType  RequirementType `json:"requirement_type"`
	RequirementValue int             `json:"requirement_value"`
	PointsReward     int             `json:"points_reward"`
	DiamondsReward   int             `json:"diamonds_reward"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UserAchievement records that a user earned an achievement
type UserAchievement struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	AchievementID int64     `json:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at"`
}

// AchievementWithStatus combines a catalog entry with one user's standing
type AchievementWithStatus struct {
	Achievement
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
	Current  int        `json:"current"`
	Progress float64    `json:"progress"` // 0..1
}
