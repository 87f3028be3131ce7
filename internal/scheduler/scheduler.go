// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// SessionCleaner removes expired refresh sessions
type SessionCleaner interface {
	CleanupExpiredSessions() (int64, error)
}

// LinkCodeCleaner removes link codes past their expiry
type LinkCodeCleaner interface {
	DeleteExpiredLinkCodes(now time.Time) (int64, error)
}

// AudioSweeper removes stored audio no recording points to
type AudioSweeper interface {
	SweepOrphanedAudio(ctx context.Context, minAge time.Duration) (int, error)
}

// OrphanMinAge keeps the sweep away from uploads still being saved
const OrphanMinAge = time.Hour

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  SessionCleaner
	linkCodes LinkCodeCleaner
	audio     AudioSweeper
	interval  time.Duration
	now       func() time.Time
}

// New creates a scheduler that runs cleanup every interval. audio may be nil.
func New(sessions SessionCleaner, linkCodes LinkCodeCleaner, audio AudioSweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		linkCodes: linkCodes,
		audio:     audio,
		interval:  interval,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.Cleanup); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Cleanup runs every housekeeping job once
func (s *Scheduler) Cleanup() {
	if n, err := s.sessions.CleanupExpiredSessions(); err != nil {
		log.Printf("Error cleaning up sessions: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d expired sessions", n)
	}

	if n, err := s.linkCodes.DeleteExpiredLinkCodes(s.now()); err != nil {
		log.Printf("Error cleaning up link codes: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d expired link codes", n)
	}

	if s.audio == nil {
		return
	}
	if n, err := s.audio.SweepOrphanedAudio(context.Background(), OrphanMinAge); err != nil {
		log.Printf("Error sweeping orphaned audio: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d orphaned audio objects", n)
	}
}
