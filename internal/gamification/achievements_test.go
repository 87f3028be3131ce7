package gamification

import (
	"errors"
	"testing"

	"readquest/internal/models"
)

func catalog() []models.Achievement {
	return []models.Achievement{
		{ID: 1, Code: "first_recording", RequirementType: models.RequirementTotalRecordings, RequirementValue: 1, PointsReward: 10, DiamondsReward: 1},
		{ID: 2, Code: "streak_3", RequirementType: models.RequirementStreak, RequirementValue: 3, PointsReward: 30, DiamondsReward: 3},
		{ID: 3, Code: "points_100", RequirementType: models.RequirementPoints, RequirementValue: 100, DiamondsReward: 2},
		{ID: 4, Code: "perfect_week", RequirementType: models.RequirementPerfectWeek, RequirementValue: 1, PointsReward: 100},
	}
}

func TestStatFor(t *testing.T) {
	stats := Stats{Points: 120, CurrentStreak: 4, TotalRecordings: 9, PerfectWeeks: 3}

	tests := []struct {
		requirement models.RequirementType
		want        int
		wantErr     error
	}{
		{models.RequirementTotalRecordings, 9, nil},
		{models.RequirementStreak, 4, nil},
		{models.RequirementPoints, 120, nil},
		{models.RequirementPerfectWeek, 0, ErrRequirementUnimplemented},
		{models.RequirementType("friends"), 0, ErrUnknownRequirement},
	}

	for _, tt := range tests {
		t.Run(string(tt.requirement), func(t *testing.T) {
			got, err := StatFor(stats, tt.requirement)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StatFor() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StatFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	stats := Stats{Points: 100, CurrentStreak: 2, TotalRecordings: 1, PerfectWeeks: 5}

	eval := Evaluate(stats, catalog())

	if len(eval.Earned) != 2 {
		t.Fatalf("earned %d achievements, want 2: %+v", len(eval.Earned), eval.Earned)
	}
	if eval.Earned[0].Code != "first_recording" || eval.Earned[1].Code != "points_100" {
		t.Errorf("unexpected earned set: %s, %s", eval.Earned[0].Code, eval.Earned[1].Code)
	}
	if !errors.Is(eval.Skipped[4], ErrRequirementUnimplemented) {
		t.Errorf("perfect_week should be skipped as unimplemented, got %v", eval.Skipped[4])
	}
}

func TestEvaluateIsIdempotentOverUnearned(t *testing.T) {
	stats := Stats{Points: 150, CurrentStreak: 3, TotalRecordings: 2}
	all := catalog()

	first := Evaluate(stats, all)
	if len(first.Earned) != 3 {
		t.Fatalf("first pass earned %d, want 3", len(first.Earned))
	}

	held := make(map[int64]bool)
	for _, a := range first.Earned {
		held[a.ID] = true
	}
	var unearned []models.Achievement
	for _, a := range all {
		if !held[a.ID] {
			unearned = append(unearned, a)
		}
	}

	second := Evaluate(stats, unearned)
	if len(second.Earned) != 0 {
		t.Errorf("second pass earned %d, want 0", len(second.Earned))
	}
}

func TestRewards(t *testing.T) {
	points, diamonds := Rewards(catalog()[:3])
	if points != 40 || diamonds != 6 {
		t.Errorf("Rewards() = (%d, %d), want (40, 6)", points, diamonds)
	}
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		requirement int
		want        float64
	}{
		{"none yet", 0, 10, 0},
		{"halfway", 5, 10, 0.5},
		{"exactly met", 10, 10, 1},
		{"over", 25, 10, 1},
		{"zero requirement", 0, 0, 1},
		{"negative requirement", 3, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressFraction(tt.current, tt.requirement); got != tt.want {
				t.Errorf("ProgressFraction(%d, %d) = %v, want %v", tt.current, tt.requirement, got, tt.want)
			}
		})
	}
}
