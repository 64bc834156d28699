// Package history keeps one record per week: the metrics snapshot, the
// reflection written for it and the insight generated from both.
package history

import (
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
)

// Entry is the saved state of one (week, year).
type Entry struct {
	ID         string            `json:"id"`
	WeekNumber int               `json:"weekNumber"`
	Year       int               `json:"year"`
	DateRange  string            `json:"dateRange"`
	Metrics    snapshot.Snapshot `json:"metrics"`
	Reflection reflection.Input  `json:"reflection"`
	AIInsight  *insight.Insight  `json:"aiInsight,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// SameWeek reports whether e is for the given week and year.
func (e Entry) SameWeek(week, year int) bool {
	return e.WeekNumber == week && e.Year == year
}
