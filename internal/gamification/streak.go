package gamification

import "time"

// DayLayout is the calendar-day key format of the streak ledger
const DayLayout = "2006-01-02"

// DayKey returns the calendar day t falls on in loc
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// DayStart parses a day key back to midnight UTC of that day
func DayStart(day string) (time.Time, error) {
	return time.Parse(DayLayout, day)
}

// AdvanceStreak applies the first activity of a new day to the counters.
// Missed days are not detected here: the current streak keeps growing
// across gaps until product decides how a broken streak should reset.
func AdvanceStreak(current, longest int) (int, int) {
	current++
	if current > longest {
		longest = current
	}
	return current, longest
}

// GapDays counts whole calendar days between the last active day (in loc)
// and today with no activity. Zero when today follows it directly or is the same day.
func GapDays(lastActive *time.Time, today string, loc *time.Location) int {
	if lastActive == nil {
		return 0
	}
	todayStart, err := DayStart(today)
	if err != nil {
		return 0
	}
	last, err := DayStart(DayKey(*lastActive, loc))
	if err != nil {
		return 0
	}
	days := int(todayStart.Sub(last).Hours()/24) - 1
	if days < 0 {
		return 0
	}
	return days
}
