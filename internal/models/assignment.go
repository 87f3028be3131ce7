package models

import "time"

// AssignmentStatus is the lifecycle state of a reading assignment
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentReviewed  AssignmentStatus = "reviewed"
)

// CanTransitionTo reports whether next is the single state that may follow s.
// Assignments only move forward: pending -> completed -> reviewed.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case AssignmentPending:
		return next == AssignmentCompleted
	case AssignmentCompleted:
		return next == AssignmentReviewed
	default:
		return false
	}
}

// ReadingAssignment is a reading task a parent sets for a student
type ReadingAssignment struct {
	ID             int64            `json:"id"`
	StudentID      int64            `json:"student_id"`
	ParentID       int64            `json:"parent_id"`
	BookTitle      string           `json:"book_title"`
	Description    *string          `json:"description,omitempty"`
	TargetDuration *int             `json:"target_duration,omitempty"` // minutes
	PointsReward   *int             `json:"points_reward,omitempty"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	Status         AssignmentStatus `json:"status"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	ReviewedAt     *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsOverdue reports whether a pending assignment is past its due date
func (a *ReadingAssignment) IsOverdue(now time.Time) bool {
	return a.Status == AssignmentPending && a.DueDate != nil && now.After(*a.DueDate)
}

// ChildSummary is one child's row on the parent dashboard
type ChildSummary struct {
	Student          User                     `json:"student"`
	Progress         StudentProgress          `json:"progress"`
	RecentRecordings []AudioRecord            `json:"recent_recordings"`
	AssignmentCounts map[AssignmentStatus]int `json:"assignment_counts"`
	Overdue          int                      `json:"overdue_assignments"`
}
