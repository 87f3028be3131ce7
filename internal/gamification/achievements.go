package gamification

import (
	"errors"
	"fmt"

	"readquest/internal/models"
)

var (
	// ErrRequirementUnimplemented marks a known requirement kind with no stat behind it yet
	ErrRequirementUnimplemented = errors.New("achievement requirement not implemented")
	// ErrUnknownRequirement marks a requirement kind outside the catalog's closed set
	ErrUnknownRequirement = errors.New("unknown achievement requirement")
)

// Stats is the snapshot achievements are evaluated against
type Stats struct {
	Points          int `json:"points"`
	CurrentStreak   int `json:"current_streak"`
	TotalRecordings int `json:"total_recordings"`
	PerfectWeeks    int `json:"perfect_weeks"`
}

// StatFor resolves the stat a requirement kind is measured against
func StatFor(stats Stats, requirement models.RequirementType) (int, error) {
	switch requirement {
	case models.RequirementTotalRecordings:
		return stats.TotalRecordings, nil
	case models.RequirementStreak:
		return stats.CurrentStreak, nil
	case models.RequirementPoints:
		return stats.Points, nil
	case models.RequirementPerfectWeek:
		return 0, ErrRequirementUnimplemented
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRequirement, requirement)
	}
}

// IsEarned reports whether stats satisfy the achievement's threshold.
// Unimplemented and unknown requirement kinds are never earned; the error says why.
func IsEarned(stats Stats, achievement models.Achievement) (bool, error) {
	current, err := StatFor(stats, achievement.RequirementType)
	if err != nil {
		return false, err
	}
	return current >= achievement.RequirementValue, nil
}

// Evaluation is the outcome of one evaluator pass
type Evaluation struct {
	Earned  []models.Achievement
	Skipped map[int64]error // achievements whose requirement could not be evaluated
}

// Evaluate returns the achievements among unearned that stats now satisfy.
// Callers pass only achievements the user does not hold yet, which keeps
// repeated passes from earning anything twice.
func Evaluate(stats Stats, unearned []models.Achievement) Evaluation {
	eval := Evaluation{}
	for _, achievement := range unearned {
		earned, err := IsEarned(stats, achievement)
		if err != nil {
			if eval.Skipped == nil {
				eval.Skipped = make(map[int64]error)
			}
			eval.Skipped[achievement.ID] = err
			continue
		}
		if earned {
			eval.Earned = append(eval.Earned, achievement)
		}
	}
	return eval
}

// Rewards sums the point and diamond rewards of achievements
func Rewards(achievements []models.Achievement) (points, diamonds int) {
	for _, a := range achievements {
		points += a.PointsReward
		diamonds += a.DiamondsReward
	}
	return points, diamonds
}

// ProgressFraction is min(current/requirement, 1) for a progress bar.
// A requirement of zero or less is already met and reports 1.
func ProgressFraction(current, requirement int) float64 {
	if requirement <= 0 {
		return 1
	}
	if current <= 0 {
		return 0
	}
	fraction := float64(current) / float64(requirement)
	if fraction > 1 {
		return 1
	}
	return fraction
}
