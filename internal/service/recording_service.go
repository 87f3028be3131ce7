package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"readquest/internal/audio"
	"readquest/internal/gamification"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/storage"
	"readquest/internal/validation"
)

var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrUploadFailed      = errors.New("failed to upload recording")
)

// RecordingService runs the recording lifecycle: save, edit, play and delete
type RecordingService struct {
	recordings   RecordingStore
	families     FamilyStore
	store        storage.ObjectStore
	captures     *audio.CaptureManager
	player       *audio.Player
	progress     *ProgressService
	achievements *AchievementService
	assignments  *AssignmentService
	urlExpiry    time.Duration
	now          func() time.Time
}

// NewRecordingService creates a new recording service
func NewRecordingService(
	recordings RecordingStore,
	families FamilyStore,
	store storage.ObjectStore,
	captures *audio.CaptureManager,
	player *audio.Player,
	progress *ProgressService,
	achievements *AchievementService,
	assignments *AssignmentService,
	urlExpiry time.Duration,
) *RecordingService {
	return &RecordingService{
		recordings:   recordings,
		families:     families,
		store:        store,
		captures:     captures,
		player:       player,
		progress:     progress,
		achievements: achievements,
		assignments:  assignments,
		urlExpiry:    urlExpiry,
		now:          time.Now,
	}
}

// SaveInput describes a finished recording to persist
type SaveInput struct {
	UserID          int64
	Title           string
	Description     *string
	DurationSeconds int
	Extension       string
	Body            io.Reader
	Size            int64
	CapturedAt      time.Time
	AssignmentID    *int64
}

// Bookkeeping is the second phase of a save: rewards and linked state.
// Its failures never undo the saved recording.
type Bookkeeping struct {
	Progress            gamification.Progress    `json:"progress"`
	Streak              *repository.StreakUpdate `json:"-"`
	NewStreakDay        bool                     `json:"new_streak_day"`
	CurrentStreak       int                      `json:"current_streak"`
	Achievements        []models.Achievement     `json:"achievements"`
	AssignmentCompleted bool                     `json:"assignment_completed"`
	Err                 error                    `json:"-"`
	Warnings            []string                 `json:"warnings,omitempty"`
}

// SaveResult separates the persisted artifact from the bookkeeping outcome
type SaveResult struct {
	Record      *models.AudioRecord `json:"record"`
	Bookkeeping Bookkeeping         `json:"bookkeeping"`
}

func validateRecordingDetails(title string, description *string) error {
	if err := validation.ValidateTitle(title); err != nil {
		return err
	}
	return validation.ValidateDescription("description", description, validation.MaxDescriptionLength)
}

// Save uploads a recording, inserts its row and then applies bookkeeping.
// Upload and insert failures fail the save; bookkeeping failures are logged
// and reported on the result.
func (s *RecordingService) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	if err := validateRecordingDetails(in.Title, in.Description); err != nil {
		return nil, err
	}
	if in.Body == nil || in.Size == 0 {
		return nil, validation.ValidationError{Field: "audio", Message: "recording is empty"}
	}
	if in.DurationSeconds < 0 {
		in.DurationSeconds = 0
	}

	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}

	objectPath := storage.RecordingPath(in.UserID, capturedAt, in.Extension)
	if err := s.store.Upload(ctx, objectPath, in.Body, in.Size, storage.ContentTypeFor(in.Extension)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	size := in.Size
	duration := in.DurationSeconds
	rec := &models.AudioRecord{
		UserID:          in.UserID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		StoragePath:     objectPath,
		FileSize:        &size,
		DurationSeconds: &duration,
		PointsEarned:    gamification.RecordingPoints(duration),
	}
	if err := s.recordings.CreateRecording(rec); err != nil {
		log.Printf("Recording uploaded to %s but not saved: %v", objectPath, err)
		return nil, fmt.Errorf("failed to save recording: %w", err)
	}

	result := &SaveResult{Record: rec, Bookkeeping: s.applyBookkeeping(ctx, rec, in.AssignmentID)}
	if result.Bookkeeping.Err != nil {
		log.Printf("Recording %d saved with bookkeeping errors: %v", rec.ID, result.Bookkeeping.Err)
	}
	return result, nil
}

func (s *RecordingService) applyBookkeeping(ctx context.Context, rec *models.AudioRecord, assignmentID *int64) Bookkeeping {
	var bk Bookkeeping
	var errs []error

	bk.Progress = s.progress.AwardPoints(rec.UserID, rec.PointsEarned)
	if !bk.Progress.Persisted {
		errs = append(errs, errors.New("points were not persisted"))
	}

	streak, err := s.progress.UpdateStreak(rec.UserID, s.now(), rec.PointsEarned)
	if err != nil {
		errs = append(errs, err)
	} else {
		bk.Streak = streak
		bk.NewStreakDay = streak.NewDay
		bk.CurrentStreak = streak.Profile.CurrentStreak
	}

	check, err := s.achievements.CheckAndAward(rec.UserID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to evaluate achievements: %w", err))
	}
	if check != nil {
		bk.Achievements = check.Earned
	}

	if assignmentID != nil {
		if _, err := s.assignments.Complete(ctx, rec.UserID, *assignmentID, rec.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to complete assignment %d: %w", *assignmentID, err))
		} else {
			bk.AssignmentCompleted = true
			id := *assignmentID
			rec.AssignmentID = &id
		}
	}

	bk.Err = errors.Join(errs...)
	for _, e := range errs {
		bk.Warnings = append(bk.Warnings, e.Error())
	}
	return bk
}

// SaveCapture saves the user's stopped capture. The capture returns to
// stopped when the artifact phase fails so it can be retried or discarded.
func (s *RecordingService) SaveCapture(ctx context.Context, userID int64, title string, description *string, assignmentID *int64) (*SaveResult, error) {
	if err := validateRecordingDetails(title, description); err != nil {
		return nil, err
	}

	upload, err := s.captures.BeginUpload(userID)
	if errors.Is(err, audio.ErrEmptyCapture) {
		return nil, validation.ValidationError{Field: "audio", Message: "recording is empty"}
	}
	if err != nil {
		return nil, err
	}

	result, err := s.Save(ctx, SaveInput{
		UserID:          userID,
		Title:           title,
		Description:     description,
		DurationSeconds: upload.DurationSeconds,
		Extension:       upload.Extension,
		Body:            upload.Body,
		Size:            upload.Size,
		CapturedAt:      upload.CapturedAt,
		AssignmentID:    assignmentID,
	})
	if finishErr := s.captures.FinishUpload(userID, err == nil); finishErr != nil {
		log.Printf("Failed to finish capture for user %d: %v", userID, finishErr)
	}
	return result, err
}

// canAccess reports whether viewerID may see a recording of ownerID
func (s *RecordingService) canAccess(viewerID, ownerID int64) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}
	return s.families.IsLinked(viewerID, ownerID)
}

// Get returns a recording its owner or a linked parent may see
func (s *RecordingService) Get(viewerID, id int64) (*models.AudioRecord, error) {
	rec, err := s.recordings.GetRecording(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordingNotFound
	}
	ok, err := s.canAccess(viewerID, rec.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordingNotFound
	}
	return rec, nil
}

// List returns a page of the user's recordings, newest first
func (s *RecordingService) List(userID int64, limit, offset int) ([]models.AudioRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.recordings.ListRecordings(userID, limit, offset)
}

// Update edits the title and description of the user's recording
func (s *RecordingService) Update(userID, id int64, title string, description *string) (*models.AudioRecord, error) {
	if err := validateRecordingDetails(title, description); err != nil {
		return nil, err
	}
	err := s.recordings.UpdateDetails(id, userID, strings.TrimSpace(title), description)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.recordings.GetRecording(id)
}

// Delete removes a recording. Playback of it stops first, the stored object
// is removed on a best-effort basis, and the row removal must succeed.
func (s *RecordingService) Delete(ctx context.Context, userID, id int64) error {
	rec, err := s.recordings.GetRecording(id)
	if err != nil {
		return err
	}
	if rec == nil || rec.UserID != userID {
		return ErrRecordingNotFound
	}

	if n := s.player.StopRecord(id); n > 0 {
		log.Printf("Stopped %d playback(s) of recording %d before deletion", n, id)
	}

	if err := s.store.Delete(ctx, rec.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Failed to delete stored object %s: %v", rec.StoragePath, err)
	}

	err = s.recordings.DeleteRecording(id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRecordingNotFound
	}
	return err
}

// SweepOrphanedAudio deletes stored objects that no recording points to,
// such as uploads whose row insert failed. Objects younger than minAge are
// skipped so in-flight saves are left alone.
func (s *RecordingService) SweepOrphanedAudio(ctx context.Context, minAge time.Duration) (int, error) {
	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list stored audio: %w", err)
	}

	cutoff := s.now().Add(-minAge)
	known := make(map[int64]map[string]bool)
	removed := 0
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		userID, ok := storage.OwnerOf(obj.Path)
		if !ok {
			continue
		}
		paths, ok := known[userID]
		if !ok {
			list, err := s.recordings.ListStoragePaths(userID)
			if err != nil {
				return removed, err
			}
			paths = make(map[string]bool, len(list))
			for _, p := range list {
				paths[p] = true
			}
			known[userID] = paths
		}
		if paths[obj.Path] {
			continue
		}
		if err := s.store.Delete(ctx, obj.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Failed to delete orphaned audio %s: %v", obj.Path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Play starts a playback session for viewerID, replacing any current one
func (s *RecordingService) Play(ctx context.Context, viewerID, id int64) (audio.Playback, error) {
	rec, err := s.Get(viewerID, id)
	if err != nil {
		return audio.Playback{}, err
	}

	url, err := s.store.SignedURL(ctx, rec.StoragePath, s.urlExpiry)
	if err != nil {
		return audio.Playback{}, fmt.Errorf("failed to sign recording URL: %w", err)
	}
	return s.player.Play(viewerID, id, url, s.now().Add(s.urlExpiry)), nil
}

// StopPlayback stops the viewer's playback; it reports whether one was active
func (s *RecordingService) StopPlayback(viewerID int64) bool {
	return s.player.Stop(viewerID)
}

// CurrentPlayback returns the viewer's active playback session
func (s *RecordingService) CurrentPlayback(viewerID int64) (audio.Playback, bool) {
	return s.player.Current(viewerID)
}
