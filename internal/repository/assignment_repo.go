package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// AssignmentRepository handles database operations for reading assignments
type AssignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *database.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, student_id, parent_id, book_title, description, target_duration, points_reward,
	due_date, status, completed_at, reviewed_at, created_at, updated_at`

func scanAssignment(row interface{ Scan(...interface{}) error }) (*models.ReadingAssignment, error) {
	a := &models.ReadingAssignment{}
	var (
		description                      sql.NullString
		target, reward                   sql.NullInt32
		dueDate, completedAt, reviewedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.ParentID,
		&a.BookTitle,
		&description,
		&target,
		&reward,
		&dueDate,
		&a.Status,
		&completedAt,
		&reviewedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		a.Description = &description.String
	}
	if target.Valid {
		v := int(target.Int32)
		a.TargetDuration = &v
	}
	if reward.Valid {
		v := int(reward.Int32)
		a.PointsReward = &v
	}
	a.DueDate = nullTimePtr(dueDate)
	a.CompletedAt = nullTimePtr(completedAt)
	a.ReviewedAt = nullTimePtr(reviewedAt)
	return a, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// CreateAssignment inserts a pending assignment and fills in its ID
func (r *AssignmentRepository) CreateAssignment(a *models.ReadingAssignment) error {
	query := `
		INSERT INTO reading_assignments (student_id, parent_id, book_title, description, target_duration, points_reward, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var dueDate interface{}
	if a.DueDate != nil {
		dueDate = a.DueDate.UTC()
	}
	a.Status = models.AssignmentPending
	id, err := r.db.ExecReturningID(query,
		a.StudentID,
		a.ParentID,
		a.BookTitle,
		a.Description,
		a.TargetDuration,
		a.PointsReward,
		dueDate,
		string(a.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	now := time.Now()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAssignment retrieves an assignment by ID, nil when absent
func (r *AssignmentRepository) GetAssignment(id int64) (*models.ReadingAssignment, error) {
	query := "SELECT " + assignmentColumns + " FROM reading_assignments WHERE id = ?"
	a, err := scanAssignment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// ListForStudent retrieves a student's assignments, optionally by status
func (r *AssignmentRepository) ListForStudent(studentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	if status == "" {
		return r.queryAssignments("SELECT "+assignmentColumns+" FROM reading_assignments WHERE student_id = ? ORDER BY created_at DESC, id DESC", studentID)
	}
	return r.queryAssignments("SELECT "+assignmentColumns+" FROM reading_assignments WHERE student_id = ? AND status = ? ORDER BY created_at DESC, id DESC", studentID, string(status))
}

// ListForParent retrieves the assignments a parent created, optionally by status
func (r *AssignmentRepository) ListForParent(parentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	if status == "" {
		return r.queryAssignments("SELECT "+assignmentColumns+" FROM reading_assignments WHERE parent_id = ? ORDER BY created_at DESC, id DESC", parentID)
	}
	return r.queryAssignments("SELECT "+assignmentColumns+" FROM reading_assignments WHERE parent_id = ? AND status = ? ORDER BY created_at DESC, id DESC", parentID, string(status))
}

// ListAllAssignments retrieves every assignment
func (r *AssignmentRepository) ListAllAssignments() ([]models.ReadingAssignment, error) {
	return r.queryAssignments("SELECT " + assignmentColumns + " FROM reading_assignments ORDER BY id")
}

func (r *AssignmentRepository) queryAssignments(query string, args ...interface{}) ([]models.ReadingAssignment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []models.ReadingAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// CountByStatus counts a student's assignments per status
func (r *AssignmentRepository) CountByStatus(studentID int64) (map[models.AssignmentStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM reading_assignments
		WHERE student_id = ?
		GROUP BY status
	`
	rows, err := r.db.Query(query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	defer rows.Close()

	counts := map[models.AssignmentStatus]int{
		models.AssignmentPending:   0,
		models.AssignmentCompleted: 0,
		models.AssignmentReviewed:  0,
	}
	for rows.Next() {
		var status models.AssignmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan assignment count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MarkCompleted moves a pending assignment to completed and links the
// recording to it. ErrStaleState means the assignment was no longer pending;
// ErrAlreadyLinked means the recording already completes another assignment.
func (r *AssignmentRepository) MarkCompleted(assignmentID, recordingID int64, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE reading_assignments
		SET status = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := tx.Exec(query, string(models.AssignmentCompleted), at.UTC(), assignmentID, string(models.AssignmentPending))
	if err != nil {
		return fmt.Errorf("failed to complete assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleState
	}

	query = `
		UPDATE audio_records SET assignment_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND assignment_id IS NULL
	`
	result, err = tx.Exec(query, assignmentID, recordingID)
	if err != nil {
		return fmt.Errorf("failed to link recording: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var linked sql.NullInt64
		err := tx.QueryRow("SELECT assignment_id FROM audio_records WHERE id = ?", recordingID).Scan(&linked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check recording link: %w", err)
		}
		return ErrAlreadyLinked
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkReviewed moves a completed assignment to reviewed and writes the review
// onto its linked recording. ErrStaleState means it was no longer completed;
// ErrNotFound means no recording is linked to it.
func (r *AssignmentRepository) MarkReviewed(assignmentID int64, review models.Review, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE reading_assignments
		SET status = ?, reviewed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := tx.Exec(query, string(models.AssignmentReviewed), at.UTC(), assignmentID, string(models.AssignmentCompleted))
	if err != nil {
		return fmt.Errorf("failed to review assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrStaleState
	}

	query = `
		UPDATE audio_records
		SET parent_rating = ?, parent_feedback = ?, reading_quality = ?, updated_at = CURRENT_TIMESTAMP
		WHERE assignment_id = ?
	`
	result, err = tx.Exec(query, review.Rating, review.Feedback, review.ReadingQuality, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to write review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
