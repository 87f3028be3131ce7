package repository

import (
	"database/sql"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// RecordingRepository handles database operations for audio records
type RecordingRepository struct {
	db *database.DB
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db *database.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

const recordingColumns = `id, user_id, title, description, storage_path, file_size, duration_seconds,
	points_earned, assignment_id, parent_rating, parent_feedback, reading_quality, created_at, updated_at`

func scanRecording(row interface{ Scan(...interface{}) error }) (*models.AudioRecord, error) {
	rec := &models.AudioRecord{}
	var (
		description, feedback, quality sql.NullString
		fileSize, assignmentID         sql.NullInt64
		duration, rating               sql.NullInt32
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Title,
		&description,
		&rec.StoragePath,
		&fileSize,
		&duration,
		&rec.PointsEarned,
		&assignmentID,
		&rating,
		&feedback,
		&quality,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		rec.Description = &description.String
	}
	if fileSize.Valid {
		rec.FileSize = &fileSize.Int64
	}
	if duration.Valid {
		d := int(duration.Int32)
		rec.DurationSeconds = &d
	}
	if assignmentID.Valid {
		rec.AssignmentID = &assignmentID.Int64
	}
	if rating.Valid {
		v := int(rating.Int32)
		rec.ParentRating = &v
	}
	if feedback.Valid {
		rec.ParentFeedback = &feedback.String
	}
	if quality.Valid {
		rec.ReadingQuality = &quality.String
	}
	return rec, nil
}

// CreateRecording inserts a new audio record and fills in its ID
func (r *RecordingRepository) CreateRecording(rec *models.AudioRecord) error {
	query := `
		INSERT INTO audio_records (user_id, title, description, storage_path, file_size, duration_seconds, points_earned)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		rec.UserID,
		rec.Title,
		rec.Description,
		rec.StoragePath,
		rec.FileSize,
		rec.DurationSeconds,
		rec.PointsEarned,
	)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}

	now := time.Now()
	rec.ID = id
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

// GetRecording retrieves a recording by ID, nil when absent
func (r *RecordingRepository) GetRecording(id int64) (*models.AudioRecord, error) {
	query := "SELECT " + recordingColumns + " FROM audio_records WHERE id = ?"
	rec, err := scanRecording(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return rec, nil
}

// ListRecordings retrieves a user's recordings, newest first
func (r *RecordingRepository) ListRecordings(userID int64, limit, offset int) ([]models.AudioRecord, error) {
	query := "SELECT " + recordingColumns + `
		FROM audio_records
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return r.queryRecordings(query, userID, limit, offset)
}

// ListAllRecordings retrieves every recording
func (r *RecordingRepository) ListAllRecordings() ([]models.AudioRecord, error) {
	return r.queryRecordings("SELECT " + recordingColumns + " FROM audio_records ORDER BY id")
}

func (r *RecordingRepository) queryRecordings(query string, args ...interface{}) ([]models.AudioRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	recordings := []models.AudioRecord{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recordings = append(recordings, *rec)
	}
	return recordings, rows.Err()
}

// ListStoragePaths returns the object paths of a user's recordings
func (r *RecordingRepository) ListStoragePaths(userID int64) ([]string, error) {
	rows, err := r.db.Query("SELECT storage_path FROM audio_records WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan storage path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// CountRecordings returns how many recordings a user has saved
func (r *RecordingRepository) CountRecordings(userID int64) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM audio_records WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recordings: %w", err)
	}
	return count, nil
}

// UpdateDetails changes the editable fields of a user's recording
func (r *RecordingRepository) UpdateDetails(id, userID int64, title string, description *string) error {
	query := `
		UPDATE audio_records
		SET title = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`
	result, err := r.db.Exec(query, title, description, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update recording: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecording removes a user's recording row
func (r *RecordingRepository) DeleteRecording(id, userID int64) error {
	result, err := r.db.Exec("DELETE FROM audio_records WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRecordingByAssignment retrieves the recording linked to an assignment
func (r *RecordingRepository) GetRecordingByAssignment(assignmentID int64) (*models.AudioRecord, error) {
	query := "SELECT " + recordingColumns + " FROM audio_records WHERE assignment_id = ? ORDER BY id DESC LIMIT 1"
	rec, err := scanRecording(r.db.QueryRow(query, assignmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return rec, nil
}
