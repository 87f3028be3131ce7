package service

import (
	"errors"
	"fmt"
	"log"

	"readquest/internal/gamification"
	"readquest/internal/models"
)

// AchievementService evaluates and grants achievements
type AchievementService struct {
	achievements AchievementStore
	profiles     ProfileStore
	recordings   RecordingStore
	debug        bool
}

// NewAchievementService creates a new achievement service
func NewAchievementService(achievements AchievementStore, profiles ProfileStore, recordings RecordingStore, debug bool) *AchievementService {
	return &AchievementService{
		achievements: achievements,
		profiles:     profiles,
		recordings:   recordings,
		debug:        debug,
	}
}

// CheckResult lists the achievements a check newly granted
type CheckResult struct {
	Earned          []models.Achievement `json:"earned"`
	PointsAwarded   int                  `json:"points_awarded"`
	DiamondsAwarded int                  `json:"diamonds_awarded"`
}

func (s *AchievementService) stats(userID int64) (gamification.Stats, error) {
	profile, err := s.profiles.GetOrCreateProfile(userID)
	if err != nil {
		return gamification.Stats{}, fmt.Errorf("failed to get profile: %w", err)
	}
	total, err := s.recordings.CountRecordings(userID)
	if err != nil {
		return gamification.Stats{}, fmt.Errorf("failed to count recordings: %w", err)
	}
	return gamification.Stats{
		Points:          profile.Points,
		CurrentStreak:   profile.CurrentStreak,
		TotalRecordings: total,
	}, nil
}

// CheckAndAward grants every unearned achievement the user's current stats
// satisfy and credits its rewards. A second call without a stat change grants nothing.
func (s *AchievementService) CheckAndAward(userID int64) (*CheckResult, error) {
	stats, err := s.stats(userID)
	if err != nil {
		return nil, err
	}

	unearned, err := s.achievements.ListUnearned(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unearned achievements: %w", err)
	}

	eval := gamification.Evaluate(stats, unearned)
	for id, skipErr := range eval.Skipped {
		if errors.Is(skipErr, gamification.ErrUnknownRequirement) {
			log.Printf("Achievement %d skipped: %v", id, skipErr)
		} else if s.debug {
			log.Printf("[DEBUG] Achievement %d skipped: %v", id, skipErr)
		}
	}

	result := &CheckResult{Earned: []models.Achievement{}}
	var grantErrs []error
	for _, achievement := range eval.Earned {
		granted, err := s.achievements.Grant(userID, achievement)
		if err != nil {
			grantErrs = append(grantErrs, fmt.Errorf("grant %s: %w", achievement.Code, err))
			continue
		}
		if granted {
			result.Earned = append(result.Earned, achievement)
			log.Printf("User %d earned achievement %s", userID, achievement.Code)
		}
	}
	result.PointsAwarded, result.DiamondsAwarded = gamification.Rewards(result.Earned)

	return result, errors.Join(grantErrs...)
}

// ListWithStatus returns the whole catalog with the user's standing on each entry
func (s *AchievementService) ListWithStatus(userID int64) ([]models.AchievementWithStatus, error) {
	catalog, err := s.achievements.ListAchievements()
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	earned, err := s.achievements.ListEarned(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned achievements: %w", err)
	}
	stats, err := s.stats(userID)
	if err != nil {
		return nil, err
	}

	earnedAt := make(map[int64]models.UserAchievement, len(earned))
	for _, ua := range earned {
		earnedAt[ua.AchievementID] = ua
	}

	result := make([]models.AchievementWithStatus, 0, len(catalog))
	for _, a := range catalog {
		status := models.AchievementWithStatus{Achievement: a}
		if current, err := gamification.StatFor(stats, a.RequirementType); err == nil {
			status.Current = current
			status.Progress = gamification.ProgressFraction(current, a.RequirementValue)
		}
		if ua, ok := earnedAt[a.ID]; ok {
			t := ua.EarnedAt
			status.Earned = true
			status.EarnedAt = &t
			status.Progress = 1
		}
		result = append(result, status)
	}
	return result, nil
}
