package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"readquest/internal/models"
)

func TestWriteDashboard(t *testing.T) {
	rating := 4
	summaries := []models.ChildSummary{
		{
			Student:  models.User{ID: 1, Name: "Sam", Email: "sam@example.com"},
			Progress: models.StudentProgress{Points: 140, Level: 2, CurrentStreak: 3, LongestStreak: 5, TotalRecordings: 2},
			RecentRecordings: []models.AudioRecord{
				{Title: "Chapter 2", PointsEarned: 14, ParentRating: &rating, CreatedAt: time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)},
				{Title: "Chapter 1", PointsEarned: 12, CreatedAt: time.Date(2024, 3, 9, 9, 30, 0, 0, time.UTC)},
			},
			AssignmentCounts: map[models.AssignmentStatus]int{models.AssignmentPending: 1, models.AssignmentReviewed: 2},
			Overdue:          1,
		},
		{
			Student:  models.User{ID: 2, Name: "Alex", Email: "alex@example.com"},
			Progress: models.StudentProgress{Level: 1},
		},
	}

	var buf bytes.Buffer
	if err := WriteDashboard(&buf, summaries); err != nil {
		t.Fatalf("WriteDashboard() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	children, err := f.GetRows(ChildrenSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 3 {
		t.Fatalf("children rows = %d, want header + 2", len(children))
	}

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Name"},
		{"A2", "Sam"},
		{"D2", "140"},
		{"F2", "3"},
		{"I2", "1"},
		{"J2", "1"},
		{"L2", "2"},
		{"A3", "Alex"},
		{"C3", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := f.GetCellValue(ChildrenSheet, tt.cell)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
			}
		})
	}

	recordings, err := f.GetRows(RecordingsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(recordings) != 3 {
		t.Fatalf("recording rows = %d, want header + 2", len(recordings))
	}
	if recordings[1][1] != "Chapter 2" || recordings[1][4] != "4" {
		t.Errorf("first recording row = %v", recordings[1])
	}
}
