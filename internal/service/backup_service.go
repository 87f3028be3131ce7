package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
	"readquest/internal/repository"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                     `json:"version"`
	ExportedAt   time.Time                  `json:"exported_at"`
	DatabaseType string                     `json:"database_type"`
	Users        []UserBackup               `json:"users"`
	Links        []LinkBackup               `json:"parent_links"`
	Profiles     []models.Profile           `json:"profiles"`
	StreakDays   []models.StreakDay         `json:"streak_days"`
	Earned       []EarnedBackup             `json:"earned_achievements"`
	Assignments  []models.ReadingAssignment `json:"assignments"`
	Recordings   []models.AudioRecord       `json:"recordings"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LinkBackup represents a parent/student link
type LinkBackup struct {
	ParentID  int64     `json:"parent_id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EarnedBackup references the achievement by code so catalogs may be re-seeded
type EarnedBackup struct {
	UserID          int64     `json:"user_id"`
	AchievementCode string    `json:"achievement_code"`
	EarnedAt        time.Time `json:"earned_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db          *database.DB
	users       *repository.UserRepository
	profiles    *repository.ProfileRepository
	recordings  *repository.RecordingRepository
	assignments *repository.AssignmentRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{
		db:          db,
		users:       repository.NewUserRepository(db),
		profiles:    repository.NewProfileRepository(db),
		recordings:  repository.NewRecordingRepository(db),
		assignments: repository.NewAssignmentRepository(db),
	}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	log.Printf("Exported: %d users, %d links, %d profiles, %d streak days, %d achievements, %d assignments, %d recordings",
		len(backup.Users), len(backup.Links), len(backup.Profiles), len(backup.StreakDays),
		len(backup.Earned), len(backup.Assignments), len(backup.Recordings))
	return nil
}

// ExportToWriter writes the backup as indented JSON to w
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.collect()
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) collect() (*BackupData, error) {
	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	users, err := s.users.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			Role:          string(u.Role),
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
		})
	}

	if err := s.exportLinks(backup); err != nil {
		return nil, fmt.Errorf("failed to export links: %w", err)
	}
	if backup.Profiles, err = s.profiles.ListProfiles(); err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	if err := s.exportStreakDays(backup); err != nil {
		return nil, fmt.Errorf("failed to export streak days: %w", err)
	}
	if err := s.exportEarned(backup); err != nil {
		return nil, fmt.Errorf("failed to export achievements: %w", err)
	}
	if backup.Assignments, err = s.assignments.ListAllAssignments(); err != nil {
		return nil, fmt.Errorf("failed to export assignments: %w", err)
	}
	if backup.Recordings, err = s.recordings.ListAllRecordings(); err != nil {
		return nil, fmt.Errorf("failed to export recordings: %w", err)
	}
	return backup, nil
}

func (s *BackupService) exportLinks(backup *BackupData) error {
	rows, err := s.db.Query("SELECT parent_id, student_id, created_at FROM parent_links ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LinkBackup
		if err := rows.Scan(&l.ParentID, &l.StudentID, &l.CreatedAt); err != nil {
			return err
		}
		backup.Links = append(backup.Links, l)
	}
	return rows.Err()
}

func (s *BackupService) exportStreakDays(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, user_id, day, recordings_count, points_earned, created_at FROM streak_days ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.StreakDay
		if err := rows.Scan(&d.ID, &d.UserID, &d.Day, &d.RecordingsCount, &d.PointsEarned, &d.CreatedAt); err != nil {
			return err
		}
		backup.StreakDays = append(backup.StreakDays, d)
	}
	return rows.Err()
}

func (s *BackupService) exportEarned(backup *BackupData) error {
	query := `
		SELECT ua.user_id, a.code, ua.earned_at
		FROM user_achievements ua
		INNER JOIN achievements a ON ua.achievement_id = a.id
		ORDER BY ua.id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e EarnedBackup
		if err := rows.Scan(&e.UserID, &e.AchievementCode, &e.EarnedAt); err != nil {
			return err
		}
		backup.Earned = append(backup.Earned, e)
	}
	return rows.Err()
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader in one transaction.
// The achievement catalog must already be seeded.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(*database.Tx, *BackupData) error
		}{
			{"users", importUsers},
			{"links", importLinks},
			{"profiles", importProfiles},
			{"streak days", importStreakDays},
			{"achievements", importEarned},
			{"assignments", importAssignments},
			{"recordings", importRecordings},
		}
		for _, step := range steps {
			if err := step.fn(tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return resetSequences(tx)
	})
	if err != nil {
		return err
	}

	log.Println("Database import completed successfully")
	return nil
}

func importUsers(tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d users...", len(backup.Users))
	query := "INSERT INTO users (id, email, password_hash, name, role, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, u := range backup.Users {
		if _, err := tx.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.Role, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importLinks(tx *database.Tx, backup *BackupData) error {
	query := "INSERT INTO parent_links (parent_id, student_id, created_at) VALUES (?, ?, ?)"
	for _, l := range backup.Links {
		if _, err := tx.Exec(query, l.ParentID, l.StudentID, l.CreatedAt); err != nil {
			return fmt.Errorf("link %d-%d: %w", l.ParentID, l.StudentID, err)
		}
	}
	return nil
}

func importProfiles(tx *database.Tx, backup *BackupData) error {
	query := `INSERT INTO profiles (user_id, points, diamonds, current_streak, longest_streak, level, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, p := range backup.Profiles {
		if _, err := tx.Exec(query, p.UserID, p.Points, p.Diamonds, p.CurrentStreak, p.LongestStreak, p.Level, p.LastActivity, p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("profile %d: %w", p.UserID, err)
		}
	}
	return nil
}

func importStreakDays(tx *database.Tx, backup *BackupData) error {
	query := "INSERT INTO streak_days (id, user_id, day, recordings_count, points_earned, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	for _, d := range backup.StreakDays {
		if _, err := tx.Exec(query, d.ID, d.UserID, d.Day, d.RecordingsCount, d.PointsEarned, d.CreatedAt); err != nil {
			return fmt.Errorf("streak day %d: %w", d.ID, err)
		}
	}
	return nil
}

func importEarned(tx *database.Tx, backup *BackupData) error {
	query := `INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		SELECT ?, id, ? FROM achievements WHERE code = ?`
	for _, e := range backup.Earned {
		result, err := tx.Exec(query, e.UserID, e.EarnedAt, e.AchievementCode)
		if err != nil {
			return fmt.Errorf("achievement %s for user %d: %w", e.AchievementCode, e.UserID, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			log.Printf("Skipping unknown achievement %s for user %d", e.AchievementCode, e.UserID)
		}
	}
	return nil
}

func importAssignments(tx *database.Tx, backup *BackupData) error {
	query := `INSERT INTO reading_assignments (id, student_id, parent_id, book_title, description, target_duration, points_reward,
		due_date, status, completed_at, reviewed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, a := range backup.Assignments {
		if _, err := tx.Exec(query, a.ID, a.StudentID, a.ParentID, a.BookTitle, a.Description, a.TargetDuration, a.PointsReward,
			a.DueDate, string(a.Status), a.CompletedAt, a.ReviewedAt, a.CreatedAt, a.UpdatedAt); err != nil {
			return fmt.Errorf("assignment %d: %w", a.ID, err)
		}
	}
	return nil
}

func importRecordings(tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d recordings...", len(backup.Recordings))
	query := `INSERT INTO audio_records (id, user_id, title, description, storage_path, file_size, duration_seconds, points_earned,
		assignment_id, parent_rating, parent_feedback, reading_quality, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range backup.Recordings {
		if _, err := tx.Exec(query, r.ID, r.UserID, r.Title, r.Description, r.StoragePath, r.FileSize, r.DurationSeconds, r.PointsEarned,
			r.AssignmentID, r.ParentRating, r.ParentFeedback, r.ReadingQuality, r.CreatedAt, r.UpdatedAt); err != nil {
			return fmt.Errorf("recording %d: %w", r.ID, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL id sequences past the imported ids
func resetSequences(tx *database.Tx) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	for _, table := range []string{"users", "streak_days", "user_achievements", "parent_links", "reading_assignments", "audio_records"} {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1)) FROM %s", table, table)
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
