package service

import (
	"context"
	"testing"
	"time"

	"readquest/internal/models"
)

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sam := env.student("sam")
	alex := env.student("alex")
	parent := env.parentOf("pat", sam, alex)
	dashboard := NewDashboardService(env.store, env.store, env.store, env.progress)

	for i := 0; i < 7; i++ {
		if _, err := env.recordings.Save(ctx, saveInput(sam.ID, "Story", 60)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.assignments.Create(parent.ID, CreateAssignmentInput{StudentID: alex.ID, BookTitle: "Matilda"}); err != nil {
		t.Fatal(err)
	}
	due := env.clock.Add(-24 * time.Hour)
	if _, err := env.assignments.Create(parent.ID, CreateAssignmentInput{StudentID: alex.ID, BookTitle: "The BFG", DueDate: &due}); err != nil {
		t.Fatal(err)
	}
	dashboard.now = env.now

	summaries, err := dashboard.Dashboard(parent.ID)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Dashboard() returned %d children, want 2", len(summaries))
	}

	samRow, alexRow := summaries[0], summaries[1]
	if samRow.Student.ID != sam.ID {
		samRow, alexRow = alexRow, samRow
	}
	if len(samRow.RecentRecordings) != RecentRecordingsOnDashboard {
		t.Errorf("recent recordings = %d, want %d", len(samRow.RecentRecordings), RecentRecordingsOnDashboard)
	}
	if samRow.Progress.TotalRecordings != 7 {
		t.Errorf("TotalRecordings = %d, want 7", samRow.Progress.TotalRecordings)
	}
	if alexRow.AssignmentCounts[models.AssignmentPending] != 2 || alexRow.AssignmentCounts[models.AssignmentReviewed] != 0 {
		t.Errorf("assignment counts = %v", alexRow.AssignmentCounts)
	}
	if alexRow.Overdue != 1 || samRow.Overdue != 0 {
		t.Errorf("overdue = %d for alex, %d for sam; want 1 and 0", alexRow.Overdue, samRow.Overdue)
	}

	empty, err := dashboard.Dashboard(sam.ID)
	if err != nil || len(empty) != 0 {
		t.Errorf("Dashboard() for a user with no children = %v, %v", empty, err)
	}
}
