package database

import (
	"fmt"
	"log"
)

// catalogEntry is one row of the built-in achievement catalog
type catalogEntry struct {
	Code             string
	Name             string
	Description      string
	Icon             string
	RequirementType  string
	RequirementValue int
	PointsReward     int
	DiamondsReward   int
}

// achievementCatalog is the static catalog every installation starts with
var achievementCatalog = []catalogEntry{
	{"first_recording", "First Steps", "Save your first reading", "🎤", "total_recordings", 1, 10, 1},
	{"ten_recordings", "Bookworm", "Save 10 readings", "📚", "total_recordings", 10, 50, 5},
	{"fifty_recordings", "Storyteller", "Save 50 readings", "📖", "total_recordings", 50, 200, 20},
	{"streak_3", "On a Roll", "Read 3 days in a row", "🔥", "streak", 3, 30, 3},
	{"streak_7", "Week Warrior", "Read 7 days in a row", "⚡", "streak", 7, 75, 7},
	{"streak_30", "Unstoppable", "Read 30 days in a row", "🏆", "streak", 30, 300, 30},
	{"points_100", "Rising Reader", "Earn 100 points", "⭐", "points", 100, 0, 2},
	{"points_500", "Star Reader", "Earn 500 points", "🌟", "points", 500, 0, 10},
	{"points_1000", "Reading Champion", "Earn 1000 points", "👑", "points", 1000, 0, 25},
	{"perfect_week", "Perfect Week", "Read every day for a whole week", "💎", "perfect_week", 1, 100, 10},
}

// SeedAchievements inserts catalog entries that are not present yet
func (db *DB) SeedAchievements() error {
	added := 0
	for _, entry := range achievementCatalog {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM achievements WHERE code = ?", entry.Code).Scan(&count); err != nil {
			return fmt.Errorf("failed to check achievement %s: %w", entry.Code, err)
		}
		if count > 0 {
			continue
		}

		query := `
			INSERT INTO achievements (code, name, description, icon, requirement_type, requirement_value, points_reward, diamonds_reward)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := db.Exec(query, entry.Code, entry.Name, entry.Description, entry.Icon,
			entry.RequirementType, entry.RequirementValue, entry.PointsReward, entry.DiamondsReward); err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", entry.Code, err)
		}
		added++
	}

	if added > 0 {
		log.Printf("Seeded %d achievements", added)
	}
	return nil
}
