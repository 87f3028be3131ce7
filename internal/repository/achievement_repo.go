package repository

import (
	"database/sql"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// AchievementRepository handles the achievement catalog and earned records
type AchievementRepository struct {
	db *database.DB
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

const achievementColumns = `a.id, a.code, a.name, a.description, a.icon, a.requirement_type,
	a.requirement_value, a.points_reward, a.diamonds_reward, a.created_at`

func (r *AchievementRepository) queryAchievements(query string, args ...interface{}) ([]models.Achievement, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(
			&a.ID,
			&a.Code,
			&a.Name,
			&a.Description,
			&a.Icon,
			&a.RequirementType,
			&a.RequirementValue,
			&a.PointsReward,
			&a.DiamondsReward,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// ListAchievements retrieves the whole catalog
func (r *AchievementRepository) ListAchievements() ([]models.Achievement, error) {
	query := "SELECT " + achievementColumns + " FROM achievements a ORDER BY a.requirement_type, a.requirement_value, a.id"
	return r.queryAchievements(query)
}

// ListUnearned retrieves the catalog entries userID has not earned yet
func (r *AchievementRepository) ListUnearned(userID int64) ([]models.Achievement, error) {
	query := "SELECT " + achievementColumns + `
		FROM achievements a
		WHERE NOT EXISTS (
			SELECT 1 FROM user_achievements ua
			WHERE ua.achievement_id = a.id AND ua.user_id = ?
		)
		ORDER BY a.requirement_value, a.id
	`
	return r.queryAchievements(query, userID)
}

// ListEarned retrieves the achievements userID has earned
func (r *AchievementRepository) ListEarned(userID int64) ([]models.UserAchievement, error) {
	query := `
		SELECT id, user_id, achievement_id, earned_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY earned_at
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned achievements: %w", err)
	}
	defer rows.Close()

	var earned []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earned achievement: %w", err)
		}
		earned = append(earned, ua)
	}
	return earned, rows.Err()
}

// Grant records that userID earned achievement and credits its rewards in
// one transaction. It returns false when the achievement was already earned.
func (r *AchievementRepository) Grant(userID int64, achievement models.Achievement) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow("SELECT id FROM user_achievements WHERE user_id = ? AND achievement_id = ?", userID, achievement.ID).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check achievement: %w", err)
	}

	query := "INSERT INTO user_achievements (user_id, achievement_id, earned_at) VALUES (?, ?, ?)"
	if _, err := tx.Exec(query, userID, achievement.ID, time.Now().UTC()); err != nil {
		if tx.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record achievement: %w", err)
	}

	if err := ensureProfile(tx, userID); err != nil {
		return false, err
	}
	if err := addRewards(tx, userID, achievement.PointsReward, achievement.DiamondsReward); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}
