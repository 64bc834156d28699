package weekly

import (
	"fmt"
	"time"
)

// WeekOf returns the ISO 8601 week number and week-year of t.
func WeekOf(t time.Time) (week, year int) {
	year, week = t.ISOWeek()
	return week, year
}

// WeekStart returns midnight UTC on the Monday that starts ISO week of year.
func WeekStart(week, year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// DateRange labels an ISO week Monday to Sunday, e.g. "2025/01/06 - 01/12".
func DateRange(week, year int) string {
	start := WeekStart(week, year)
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("%s - %s", start.Format("2006/01/02"), end.Format("01/02"))
}

// ValidWeek reports whether week can occur in an ISO year.
func ValidWeek(week, year int) bool {
	if week < 1 || week > 53 || year < 1970 || year > 9999 {
		return false
	}
	if week < 53 {
		return true
	}
	// Dec 28 always falls in the last ISO week of its year.
	_, last := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return last == 53
}
