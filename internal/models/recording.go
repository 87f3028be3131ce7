package models

import "time"

// AudioRecord is a saved reading-aloud recording
type AudioRecord struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	StoragePath     string    `json:"storage_path"`
	FileSize        *int64    `json:"file_size,omitempty"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	PointsEarned    int       `json:"points_earned"`
	AssignmentID    *int64    `json:"assignment_id,omitempty"`
	ParentRating    *int      `json:"parent_rating,omitempty"`
	ParentFeedback  *string   `json:"parent_feedback,omitempty"`
	ReadingQuality  *string   `json:"reading_quality,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration returns the recorded length in seconds, zero when unknown
func (r *AudioRecord) Duration() int {
	if r.DurationSeconds == nil {
		return 0
	}
	return *r.DurationSeconds
}

// Review holds the parent's annotations for a reviewed recording
type Review struct {
	Rating         int     `json:"parent_rating"`
	Feedback       *string `json:"parent_feedback,omitempty"`
	ReadingQuality *string `json:"reading_quality,omitempty"`
}
