package models

import "time"

// Profile holds a student's gamification counters
type Profile struct {
	UserID        int64      `json:"user_id"`
	Points        int        `json:"points"`
	Diamonds      int        `json:"diamonds"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	Level         int        `json:"level"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultProfile is the profile assumed for a user with no stored row
func DefaultProfile(userID int64) Profile {
	return Profile{UserID: userID, Level: 1}
}

// StreakDay is the per-day ledger entry behind the streak counters
type StreakDay struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Day             string    `json:"day"` // YYYY-MM-DD
	RecordingsCount int       `json:"recordings_count"`
	PointsEarned    int       `json:"points_earned"`
	CreatedAt       time.Time `json:"created_at"`
}

// StudentProgress is the progress snapshot shown to students and parents
type StudentProgress struct {
	Points          int `json:"points"`
	Diamonds        int `json:"diamonds"`
	CurrentStreak   int `json:"currentStreak"`
	LongestStreak   int `json:"longestStreak"`
	Level           int `json:"level"`
	TotalRecordings int `json:"totalRecordings"`
	NextLevelPoints int `json:"nextLevelPoints"`
}
