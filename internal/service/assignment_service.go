package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrInvalidTransition  = errors.New("invalid assignment transition")
	ErrNotLinked          = errors.New("student is not linked to this parent")
)

// AssignmentNotifier tells a parent about assignment progress
type AssignmentNotifier interface {
	SendAssignmentCompletedEmail(ctx context.Context, toEmail, parentName, studentName, bookTitle string) error
}

// AssignmentService runs the reading assignment lifecycle
type AssignmentService struct {
	assignments AssignmentStore
	recordings  RecordingStore
	families    FamilyStore
	users       UserStore
	progress    *ProgressService
	notifier    AssignmentNotifier
	now         func() time.Time
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(assignments AssignmentStore, recordings RecordingStore, families FamilyStore, users UserStore, progress *ProgressService, notifier AssignmentNotifier) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		recordings:  recordings,
		families:    families,
		users:       users,
		progress:    progress,
		notifier:    notifier,
		now:         time.Now,
	}
}

// CreateAssignmentInput is what a parent supplies for a new assignment
type CreateAssignmentInput struct {
	StudentID      int64      `json:"student_id"`
	BookTitle      string     `json:"book_title"`
	Description    *string    `json:"description,omitempty"`
	TargetDuration *int       `json:"target_duration,omitempty"`
	PointsReward   *int       `json:"points_reward,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// Create sets a pending assignment for a linked student
func (s *AssignmentService) Create(parentID int64, in CreateAssignmentInput) (*models.ReadingAssignment, error) {
	if err := validation.ValidateBookTitle(in.BookTitle); err != nil {
		return nil, err
	}
	if err := validation.ValidateDescription("description", in.Description, validation.MaxDescriptionLength); err != nil {
		return nil, err
	}
	if in.TargetDuration != nil && *in.TargetDuration < 0 {
		return nil, validation.ValidationError{Field: "target_duration", Message: "must not be negative"}
	}
	if in.PointsReward != nil && *in.PointsReward < 0 {
		return nil, validation.ValidationError{Field: "points_reward", Message: "must not be negative"}
	}

	linked, err := s.families.IsLinked(parentID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrNotLinked
	}

	a := &models.ReadingAssignment{
		StudentID:      in.StudentID,
		ParentID:       parentID,
		BookTitle:      strings.TrimSpace(in.BookTitle),
		Description:    in.Description,
		TargetDuration: in.TargetDuration,
		PointsReward:   in.PointsReward,
		DueDate:        in.DueDate,
	}
	if err := s.assignments.CreateAssignment(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListForStudent returns a student's assignments, optionally by status
func (s *AssignmentService) ListForStudent(studentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	return s.assignments.ListForStudent(studentID, status)
}

// ListForParent returns the assignments a parent set, optionally by status
func (s *AssignmentService) ListForParent(parentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	return s.assignments.ListForParent(parentID, status)
}

// Complete moves the student's pending assignment to completed and links the
// recording. A points reward on the assignment is credited and the parent is
// notified; both are best effort.
func (s *AssignmentService) Complete(ctx context.Context, studentID, assignmentID, recordingID int64) (*models.ReadingAssignment, error) {
	a, err := s.assignments.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.StudentID != studentID {
		return nil, ErrAssignmentNotFound
	}
	if !a.Status.CanTransitionTo(models.AssignmentCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssignmentCompleted)
	}

	rec, err := s.recordings.GetRecording(recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != studentID {
		return nil, ErrRecordingNotFound
	}
	if rec.AssignmentID != nil {
		return nil, fmt.Errorf("%w: recording %d already completes assignment %d", ErrInvalidTransition, rec.ID, *rec.AssignmentID)
	}

	now := s.now()
	if err := s.assignments.MarkCompleted(assignmentID, recordingID, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleState):
			return nil, fmt.Errorf("%w: assignment is no longer pending", ErrInvalidTransition)
		case errors.Is(err, repository.ErrAlreadyLinked):
			return nil, fmt.Errorf("%w: recording %d already completes another assignment", ErrInvalidTransition, recordingID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRecordingNotFound
		}
		return nil, err
	}
	a.Status = models.AssignmentCompleted
	a.CompletedAt = &now

	if a.PointsReward != nil && *a.PointsReward > 0 {
		s.progress.AwardPoints(studentID, *a.PointsReward)
	}
	s.notifyCompleted(ctx, a)

	return a, nil
}

func (s *AssignmentService) notifyCompleted(ctx context.Context, a *models.ReadingAssignment) {
	if s.notifier == nil {
		return
	}
	parent, err := s.users.GetUserByID(a.ParentID)
	if err != nil || parent == nil {
		log.Printf("Cannot notify parent %d about assignment %d: %v", a.ParentID, a.ID, err)
		return
	}
	student, err := s.users.GetUserByID(a.StudentID)
	if err != nil || student == nil {
		log.Printf("Cannot notify parent %d about assignment %d: %v", a.ParentID, a.ID, err)
		return
	}
	if err := s.notifier.SendAssignmentCompletedEmail(ctx, parent.Email, parent.Name, student.Name, a.BookTitle); err != nil {
		log.Printf("Failed to notify parent %d about assignment %d: %v", a.ParentID, a.ID, err)
	}
}

// Review moves a completed assignment to reviewed and writes the parent's
// annotations onto the linked recording
func (s *AssignmentService) Review(parentID, assignmentID int64, review models.Review) (*models.ReadingAssignment, error) {
	if err := validation.ValidateRating(review.Rating); err != nil {
		return nil, err
	}
	if err := validation.ValidateDescription("parent_feedback", review.Feedback, validation.MaxFeedbackLength); err != nil {
		return nil, err
	}
	if err := validation.ValidateDescription("reading_quality", review.ReadingQuality, validation.MaxTitleLength); err != nil {
		return nil, err
	}

	a, err := s.assignments.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.ParentID != parentID {
		return nil, ErrAssignmentNotFound
	}
	if !a.Status.CanTransitionTo(models.AssignmentReviewed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AssignmentReviewed)
	}

	now := s.now()
	if err := s.assignments.MarkReviewed(assignmentID, review, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleState):
			return nil, fmt.Errorf("%w: assignment is no longer completed", ErrInvalidTransition)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRecordingNotFound
		}
		return nil, err
	}
	a.Status = models.AssignmentReviewed
	a.ReviewedAt = &now
	return a, nil
}

// Recording returns the recording linked to an assignment the viewer may see
func (s *AssignmentService) Recording(viewerID, assignmentID int64) (*models.AudioRecord, error) {
	a, err := s.assignments.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil || (a.ParentID != viewerID && a.StudentID != viewerID) {
		return nil, ErrAssignmentNotFound
	}
	rec, err := s.recordings.GetRecordingByAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordingNotFound
	}
	return rec, nil
}
