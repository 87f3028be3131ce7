package service

import (
	"fmt"
	"time"

	"readquest/internal/models"
)

// RecentRecordingsOnDashboard is how many recordings each child row shows
const RecentRecordingsOnDashboard = 5

// DashboardService assembles the parent dashboard
type DashboardService struct {
	families    FamilyStore
	recordings  RecordingStore
	assignments AssignmentStore
	progress    *ProgressService
	now         func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(families FamilyStore, recordings RecordingStore, assignments AssignmentStore, progress *ProgressService) *DashboardService {
	return &DashboardService{
		families:    families,
		recordings:  recordings,
		assignments: assignments,
		progress:    progress,
		now:         time.Now,
	}
}

// Dashboard returns one summary per child linked to the parent
func (s *DashboardService) Dashboard(parentID int64) ([]models.ChildSummary, error) {
	children, err := s.families.ListChildren(parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	summaries := make([]models.ChildSummary, 0, len(children))
	for _, child := range children {
		progress, err := s.progress.GetStudentProgress(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get progress of student %d: %w", child.ID, err)
		}
		recent, err := s.recordings.ListRecordings(child.ID, RecentRecordingsOnDashboard, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list recordings of student %d: %w", child.ID, err)
		}
		counts, err := s.assignments.CountByStatus(child.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count assignments of student %d: %w", child.ID, err)
		}
		pending, err := s.assignments.ListForStudent(child.ID, models.AssignmentPending)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending assignments of student %d: %w", child.ID, err)
		}
		overdue := 0
		for i := range pending {
			if pending[i].IsOverdue(s.now()) {
				overdue++
			}
		}

		summaries = append(summaries, models.ChildSummary{
			Student:          child,
			Progress:         *progress,
			RecentRecordings: recent,
			AssignmentCounts: counts,
			Overdue:          overdue,
		})
	}
	return summaries, nil
}
