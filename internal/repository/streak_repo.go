package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/gamification"
	"readquest/internal/models"
)

// StreakRepository maintains the per-day activity ledger and streak counters
type StreakRepository struct {
	db *database.DB
}

// NewStreakRepository creates a new streak repository
func NewStreakRepository(db *database.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// StreakUpdate is the outcome of recording activity on a day
type StreakUpdate struct {
	NewDay  bool
	Day     models.StreakDay
	Profile models.Profile
}

var errDayRace = errors.New("streak day inserted concurrently")

func getStreakDay(db database.DBTX, userID int64, day string) (*models.StreakDay, error) {
	query := `
		SELECT id, user_id, day, recordings_count, points_earned, created_at
		FROM streak_days
		WHERE user_id = ? AND day = ?
	`
	d := &models.StreakDay{}
	err := db.QueryRow(query, userID, day).Scan(
		&d.ID,
		&d.UserID,
		&d.Day,
		&d.RecordingsCount,
		&d.PointsEarned,
		&d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak day: %w", err)
	}
	return d, nil
}

// RecordActivity books one recording worth points on day. The first entry of
// a day advances the streak; later ones only bump that day's counters.
func (r *StreakRepository) RecordActivity(userID int64, day string, points int, at time.Time) (*StreakUpdate, error) {
	update, err := r.recordActivity(userID, day, points, at)
	if errors.Is(err, errDayRace) {
		// The losing transaction was rolled back; the row now exists.
		update, err = r.recordActivity(userID, day, points, at)
	}
	return update, err
}

func (r *StreakRepository) recordActivity(userID int64, day string, points int, at time.Time) (*StreakUpdate, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureProfile(tx, userID); err != nil {
		return nil, err
	}

	existing, err := getStreakDay(tx, userID, day)
	if err != nil {
		return nil, err
	}

	update := &StreakUpdate{}
	if existing != nil {
		query := `
			UPDATE streak_days
			SET recordings_count = recordings_count + 1, points_earned = points_earned + ?
			WHERE id = ?
		`
		if _, err := tx.Exec(query, points, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update streak day: %w", err)
		}
	} else {
		query := `
			INSERT INTO streak_days (user_id, day, recordings_count, points_earned)
			VALUES (?, ?, 1, ?)
		`
		if _, err := tx.Exec(query, userID, day, points); err != nil {
			if tx.IsUniqueViolation(err) {
				return nil, errDayRace
			}
			return nil, fmt.Errorf("failed to create streak day: %w", err)
		}

		profile, err := getProfile(tx, userID)
		if err != nil {
			return nil, err
		}
		current, longest := gamification.AdvanceStreak(profile.CurrentStreak, profile.LongestStreak)
		query = `
			UPDATE profiles
			SET current_streak = ?, longest_streak = ?, last_activity = ?, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
		`
		if _, err := tx.Exec(query, current, longest, at.UTC(), userID); err != nil {
			return nil, fmt.Errorf("failed to update streak: %w", err)
		}
		update.NewDay = true
	}

	d, err := getStreakDay(tx, userID, day)
	if err != nil {
		return nil, err
	}
	profile, err := getProfile(tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	update.Day = *d
	update.Profile = *profile
	return update, nil
}

// ListDays retrieves the ledger entries of a user, most recent first
func (r *StreakRepository) ListDays(userID int64, limit int) ([]models.StreakDay, error) {
	query := `
		SELECT id, user_id, day, recordings_count, points_earned, created_at
		FROM streak_days
		WHERE user_id = ?
		ORDER BY day DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query streak days: %w", err)
	}
	defer rows.Close()

	var days []models.StreakDay
	for rows.Next() {
		var d models.StreakDay
		if err := rows.Scan(&d.ID, &d.UserID, &d.Day, &d.RecordingsCount, &d.PointsEarned, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan streak day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
