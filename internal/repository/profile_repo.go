package repository

import (
	"database/sql"
	"fmt"

	"readquest/internal/database"
	"readquest/internal/gamification"
	"readquest/internal/models"
)

// ProfileRepository handles the gamification counters of each student
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, points, diamonds, current_streak, longest_streak, level, last_activity, created_at, updated_at`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	p := &models.Profile{}
	var lastActivity sql.NullTime
	err := row.Scan(
		&p.UserID,
		&p.Points,
		&p.Diamonds,
		&p.CurrentStreak,
		&p.LongestStreak,
		&p.Level,
		&lastActivity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		p.LastActivity = &t
	}
	return p, nil
}

func getProfile(db database.DBTX, userID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE user_id = ?"
	p, err := scanProfile(db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ensureProfile inserts the default row for userID unless one exists
func ensureProfile(db database.DBTX, userID int64) error {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM profiles WHERE user_id = ?", userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if exists > 0 {
		return nil
	}
	if _, err := db.Exec("INSERT INTO profiles (user_id, level) VALUES (?, 1)", userID); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// addRewards increments points and diamonds and recomputes the level
func addRewards(db database.DBTX, userID int64, points, diamonds int) error {
	if points < 0 {
		points = 0
	}
	if diamonds < 0 {
		diamonds = 0
	}
	query := `
		UPDATE profiles
		SET points = points + ?, diamonds = diamonds + ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`
	if _, err := db.Exec(query, points, diamonds, userID); err != nil {
		return fmt.Errorf("failed to add rewards: %w", err)
	}

	var total int
	if err := db.QueryRow("SELECT points FROM profiles WHERE user_id = ?", userID).Scan(&total); err != nil {
		return fmt.Errorf("failed to read points: %w", err)
	}
	if _, err := db.Exec("UPDATE profiles SET level = ? WHERE user_id = ?", gamification.LevelFor(total), userID); err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile, returning nil when the user has none yet
func (r *ProfileRepository) GetProfile(userID int64) (*models.Profile, error) {
	return getProfile(r.db, userID)
}

// GetOrCreateProfile retrieves the profile, creating the default row lazily
func (r *ProfileRepository) GetOrCreateProfile(userID int64) (*models.Profile, error) {
	p, err := getProfile(r.db, userID)
	if err != nil || p != nil {
		return p, err
	}

	if err := ensureProfile(r.db, userID); err != nil && !r.db.IsUniqueViolation(err) {
		return nil, err
	}
	return getProfile(r.db, userID)
}

// AddRewards adds points and diamonds to an existing profile and returns it
func (r *ProfileRepository) AddRewards(userID int64, points, diamonds int) (*models.Profile, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getProfile(tx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if err := addRewards(tx, userID, points, diamonds); err != nil {
		return nil, err
	}
	p, err := getProfile(tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

// ListProfiles retrieves every profile
func (r *ProfileRepository) ListProfiles() ([]models.Profile, error) {
	rows, err := r.db.Query("SELECT " + profileColumns + " FROM profiles ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
