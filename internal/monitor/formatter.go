package monitor

import (
	"fmt"
	"time"
)

// FormatRate formats a completion rate as "X%".
func FormatRate(rate int) string {
	return fmt.Sprintf("%d%%", rate)
}

// FormatTrend formats a change in points with its direction.
func FormatTrend(points int) string {
	switch {
	case points > 0:
		return fmt.Sprintf("▲ +%dpt", points)
	case points < 0:
		return fmt.Sprintf("▼ %dpt", points)
	default:
		return "■ 0pt"
	}
}

// FormatGrowth formats a goal's weekly change, dropping a zero fraction.
func FormatGrowth(delta float64) string {
	sign := ""
	if delta > 0 {
		sign = "+"
	}
	if delta == float64(int64(delta)) {
		return fmt.Sprintf("%s%d", sign, int64(delta))
	}
	return fmt.Sprintf("%s%.1f", sign, delta)
}

// FormatWeek formats an ISO week as "2025-W03".
func FormatWeek(week, year int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

// FormatAge formats the time since t as "Xh Ym" or "Xm".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return FormatDuration(int64(now.Sub(t).Seconds()))
}

// FormatDuration formats duration in seconds to "Xh Ym" or "Xm".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
