package service

import (
	"time"

	"readquest/internal/models"
	"readquest/internal/repository"
)

// The store interfaces below are satisfied by the repository package and
// narrowed to what each service calls.

// ProfileStore reads and credits student profiles
type ProfileStore interface {
	GetOrCreateProfile(userID int64) (*models.Profile, error)
	AddRewards(userID int64, points, diamonds int) (*models.Profile, error)
}

// StreakStore books daily activity
type StreakStore interface {
	RecordActivity(userID int64, day string, points int, at time.Time) (*repository.StreakUpdate, error)
	ListDays(userID int64, limit int) ([]models.StreakDay, error)
}

// RecordingStore persists audio records
type RecordingStore interface {
	CreateRecording(rec *models.AudioRecord) error
	GetRecording(id int64) (*models.AudioRecord, error)
	ListRecordings(userID int64, limit, offset int) ([]models.AudioRecord, error)
	CountRecordings(userID int64) (int, error)
	UpdateDetails(id, userID int64, title string, description *string) error
	DeleteRecording(id, userID int64) error
	GetRecordingByAssignment(assignmentID int64) (*models.AudioRecord, error)
	ListStoragePaths(userID int64) ([]string, error)
}

// AchievementStore reads the catalog and grants achievements
type AchievementStore interface {
	ListAchievements() ([]models.Achievement, error)
	ListUnearned(userID int64) ([]models.Achievement, error)
	ListEarned(userID int64) ([]models.UserAchievement, error)
	Grant(userID int64, achievement models.Achievement) (bool, error)
}

// AssignmentStore persists reading assignments and their transitions
type AssignmentStore interface {
	CreateAssignment(a *models.ReadingAssignment) error
	GetAssignment(id int64) (*models.ReadingAssignment, error)
	ListForStudent(studentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error)
	ListForParent(parentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error)
	CountByStatus(studentID int64) (map[models.AssignmentStatus]int, error)
	MarkCompleted(assignmentID, recordingID int64, at time.Time) error
	MarkReviewed(assignmentID int64, review models.Review, at time.Time) error
}

// FamilyStore manages parent/student links
type FamilyStore interface {
	CreateLinkCode(code string, parentID int64, expiresAt time.Time) (*models.LinkCode, error)
	RedeemLinkCode(code string, studentID int64, now time.Time) (*models.LinkCode, error)
	IsLinked(parentID, studentID int64) (bool, error)
	ListChildren(parentID int64) ([]models.User, error)
	ListParents(studentID int64) ([]models.User, error)
	Unlink(parentID, studentID int64) error
}

// UserStore reads and writes accounts and refresh sessions
type UserStore interface {
	CreateUser(email, passwordHash, name string, role models.Role) (*models.User, error)
	CreateOAuthUser(email, name string, role models.Role, provider, subject string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByOAuth(provider, subject string) (*models.User, error)
	LinkOAuthProvider(userID int64, provider, subject string) error
	CreateSession(sessionID string, userID int64, expiresAt time.Time) (*models.Session, error)
	GetSession(sessionID string) (*models.Session, error)
	DeleteSession(sessionID string) error
	DeleteExpiredSessions(now time.Time) (int64, error)
}
