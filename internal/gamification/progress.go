// Package gamification holds the scoring rules: levels, recording points,
// streak arithmetic and achievement evaluation. Nothing here touches storage.
package gamification

const (
	// PointsPerLevel is the width of one level band
	PointsPerLevel = 100

	// RecordingBasePoints is the flat award for any saved recording
	RecordingBasePoints = 10
	// MaxDurationBonus caps the per-minute bonus of a recording
	MaxDurationBonus = 20
	// PointsPerMinute is the bonus for each started minute of reading
	PointsPerMinute = 2
)

// Progress is the result of applying a point award to a total
type Progress struct {
	Points          int  `json:"points"`
	Level           int  `json:"level"`
	NextLevelPoints int  `json:"next_level_points"`
	Persisted       bool `json:"persisted"`
}

// LevelFor derives the level for a point total: floor(points/100) + 1
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// NextLevelPoints is how many points are missing to reach the next level
func NextLevelPoints(points int) int {
	remaining := LevelFor(points)*PointsPerLevel - points
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Award adds delta to current and recomputes the derived values.
// Negative deltas are ignored.
func Award(current, delta int) Progress {
	if delta < 0 {
		delta = 0
	}
	points := current + delta
	return Progress{
		Points:          points,
		Level:           LevelFor(points),
		NextLevelPoints: NextLevelPoints(points),
	}
}

// RecordingPoints is base + min(ceil(seconds/60)*2, 20)
func RecordingPoints(durationSeconds int) int {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	minutes := (durationSeconds + 59) / 60
	bonus := minutes * PointsPerMinute
	if bonus > MaxDurationBonus {
		bonus = MaxDurationBonus
	}
	return RecordingBasePoints + bonus
}
