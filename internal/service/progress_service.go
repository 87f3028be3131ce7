package service

import (
	"fmt"
	"log"
	"time"

	"readquest/internal/gamification"
	"readquest/internal/models"
	"readquest/internal/repository"
)

// ProgressService owns points, levels and the daily streak
type ProgressService struct {
	profiles   ProfileStore
	streaks    StreakStore
	recordings RecordingStore
	loc        *time.Location
	now        func() time.Time
}

// NewProgressService creates a progress service; loc decides calendar days
func NewProgressService(profiles ProfileStore, streaks StreakStore, recordings RecordingStore, loc *time.Location) *ProgressService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressService{
		profiles:   profiles,
		streaks:    streaks,
		recordings: recordings,
		loc:        loc,
		now:        time.Now,
	}
}

// GetStudentProgress returns the progress snapshot, creating the profile lazily
func (s *ProgressService) GetStudentProgress(userID int64) (*models.StudentProgress, error) {
	profile, err := s.profiles.GetOrCreateProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	total, err := s.recordings.CountRecordings(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count recordings: %w", err)
	}

	return &models.StudentProgress{
		Points:          profile.Points,
		Diamonds:        profile.Diamonds,
		CurrentStreak:   profile.CurrentStreak,
		LongestStreak:   profile.LongestStreak,
		Level:           profile.Level,
		TotalRecordings: total,
		NextLevelPoints: gamification.NextLevelPoints(profile.Points),
	}, nil
}

// AwardPoints credits delta points. When the profile cannot be read or written
// the award is computed against the default profile and reported unpersisted.
func (s *ProgressService) AwardPoints(userID int64, delta int) gamification.Progress {
	current := models.DefaultProfile(userID)
	profile, err := s.profiles.GetOrCreateProfile(userID)
	if err != nil {
		log.Printf("Award of %d points to user %d falls back to default profile: %v", delta, userID, err)
		return gamification.Award(current.Points, delta)
	}

	updated, err := s.profiles.AddRewards(userID, delta, 0)
	if err != nil {
		log.Printf("Failed to persist %d points for user %d: %v", delta, userID, err)
		return gamification.Award(profile.Points, delta)
	}

	return gamification.Progress{
		Points:          updated.Points,
		Level:           updated.Level,
		NextLevelPoints: gamification.NextLevelPoints(updated.Points),
		Persisted:       true,
	}
}

// UpdateStreak books activity worth points at the given instant. Only the
// first activity of a calendar day advances the streak.
func (s *ProgressService) UpdateStreak(userID int64, at time.Time, points int) (*repository.StreakUpdate, error) {
	day := gamification.DayKey(at, s.loc)

	if profile, err := s.profiles.GetOrCreateProfile(userID); err == nil {
		if gap := gamification.GapDays(profile.LastActivity, day, s.loc); gap > 0 {
			log.Printf("User %d returns after %d missed day(s); streak kept at %d", userID, gap, profile.CurrentStreak)
		}
	}

	update, err := s.streaks.RecordActivity(userID, day, points, at)
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}
	return update, nil
}

// RecentDays returns the latest ledger days of a user
func (s *ProgressService) RecentDays(userID int64, limit int) ([]models.StreakDay, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	days, err := s.streaks.ListDays(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak days: %w", err)
	}
	if days == nil {
		days = []models.StreakDay{}
	}
	return days, nil
}
