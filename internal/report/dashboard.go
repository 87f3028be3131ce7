// Package report renders the parent dashboard as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"readquest/internal/models"
)

const (
	ChildrenSheet   = "Children"
	RecordingsSheet = "Recent Recordings"
)

var childHeaders = []string{
	"Name", "Email", "Level", "Points", "Diamonds", "Current Streak",
	"Longest Streak", "Recordings", "Pending", "Overdue", "Completed", "Reviewed",
}

var recordingHeaders = []string{
	"Student", "Title", "Duration (s)", "Points", "Rating", "Recorded At",
}

// WriteDashboard writes one row per child and one row per recent recording to w
func WriteDashboard(w io.Writer, summaries []models.ChildSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ChildrenSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(RecordingsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := writeRow(f, ChildrenSheet, 1, toCells(childHeaders), header); err != nil {
		return err
	}
	if err := writeRow(f, RecordingsSheet, 1, toCells(recordingHeaders), header); err != nil {
		return err
	}

	recRow := 2
	for i, s := range summaries {
		p := s.Progress
		counts := s.AssignmentCounts
		row := []interface{}{
			s.Student.Name, s.Student.Email, p.Level, p.Points, p.Diamonds, p.CurrentStreak,
			p.LongestStreak, p.TotalRecordings,
			counts[models.AssignmentPending], s.Overdue, counts[models.AssignmentCompleted], counts[models.AssignmentReviewed],
		}
		if err := writeRow(f, ChildrenSheet, i+2, row, 0); err != nil {
			return err
		}

		for _, rec := range s.RecentRecordings {
			rating := ""
			if rec.ParentRating != nil {
				rating = fmt.Sprintf("%d", *rec.ParentRating)
			}
			row := []interface{}{
				s.Student.Name, rec.Title, rec.Duration(), rec.PointsEarned, rating,
				rec.CreatedAt.Format("2006-01-02 15:04"),
			}
			if err := writeRow(f, RecordingsSheet, recRow, row, 0); err != nil {
				return err
			}
			recRow++
		}
	}

	f.SetColWidth(ChildrenSheet, "A", "B", 24)
	f.SetColWidth(RecordingsSheet, "A", "B", 24)
	f.SetColWidth(RecordingsSheet, "F", "F", 18)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	if style != 0 {
		end, err := excelize.CoordinatesToCellName(len(values), row)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, start, end, style); err != nil {
			return err
		}
	}
	return nil
}
