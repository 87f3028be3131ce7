package gamification

import (
	"testing"
	"time"
)

func TestDayKey(t *testing.T) {
	instant := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	if got := DayKey(instant, time.UTC); got != "2024-03-10" {
		t.Errorf("DayKey(UTC) = %s, want 2024-03-10", got)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	if got := DayKey(instant, tokyo); got != "2024-03-11" {
		t.Errorf("DayKey(JST) = %s, want 2024-03-11", got)
	}

	if got := DayKey(instant, nil); got != "2024-03-10" {
		t.Errorf("DayKey(nil) = %s, want UTC day", got)
	}
}

func TestAdvanceStreak(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{"first day", 0, 0, 1, 1},
		{"extends longest", 4, 4, 5, 5},
		{"below longest", 2, 10, 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := AdvanceStreak(tt.current, tt.longest)
			if current != tt.wantCurrent || longest != tt.wantLongest {
				t.Errorf("AdvanceStreak(%d, %d) = (%d, %d), want (%d, %d)",
					tt.current, tt.longest, current, longest, tt.wantCurrent, tt.wantLongest)
			}
		})
	}
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	current, longest := 0, 7
	for i := 0; i < 20; i++ {
		prev := longest
		current, longest = AdvanceStreak(current, longest)
		if longest < prev {
			t.Fatalf("longest decreased from %d to %d", prev, longest)
		}
		if longest < current {
			t.Fatalf("longest %d below current %d", longest, current)
		}
	}
}

func TestGapDays(t *testing.T) {
	day := func(s string) *time.Time {
		d, err := DayStart(s)
		if err != nil {
			t.Fatalf("DayStart(%s): %v", s, err)
		}
		return &d
	}

	tests := []struct {
		name       string
		lastActive *time.Time
		today      string
		want       int
	}{
		{"never active", nil, "2024-03-10", 0},
		{"same day", day("2024-03-10"), "2024-03-10", 0},
		{"consecutive", day("2024-03-09"), "2024-03-10", 0},
		{"one skipped", day("2024-03-08"), "2024-03-10", 1},
		{"across month", day("2024-02-27"), "2024-03-02", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GapDays(tt.lastActive, tt.today, time.UTC); got != tt.want {
				t.Errorf("GapDays() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("last activity read in zone", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		// 20:00 UTC on the 8th is already the 9th in Tokyo
		last := time.Date(2024, 3, 8, 20, 0, 0, 0, time.UTC)
		if got := GapDays(&last, "2024-03-10", tokyo); got != 0 {
			t.Errorf("GapDays() = %d, want 0", got)
		}
		if got := GapDays(&last, "2024-03-10", time.UTC); got != 1 {
			t.Errorf("GapDays() in UTC = %d, want 1", got)
		}
	})
}
