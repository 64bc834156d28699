package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

var csvHeader = []string{
	"Week Number",
	"Year",
	"Date Range",
	"Completion Rate",
	"S Tasks Completed",
	"Total Tasks",
	"Completed Tasks",
	"High Energy Tasks",
}

// CSV writes one analytics row per entry.
func CSV(w io.Writer, entries []history.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range entries {
		m := e.Metrics
		row := []string{
			strconv.Itoa(e.WeekNumber),
			strconv.Itoa(e.Year),
			e.DateRange,
			strconv.Itoa(m.CompletionRate),
			strconv.Itoa(m.HighPriorityCompleted),
			strconv.Itoa(m.TotalTasks),
			strconv.Itoa(m.CompletedTasks),
			strconv.Itoa(m.EnergyDistribution[task.EnergyHigh]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for week %d/%d: %w", e.WeekNumber, e.Year, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary is a short description of what an export contains.
type Summary struct {
	TotalWeeks     int    `json:"totalWeeks"`
	TotalTasks     int    `json:"totalTasks"`
	CompletedTasks int    `json:"completedTasks"`
	FirstWeek      string `json:"firstWeek"`
	LastWeek       string `json:"lastWeek"`
}

// Summarize counts weeks and tasks and names the first and last week by
// date range, ordered by (year, week).
func Summarize(entries []history.Entry) Summary {
	s := Summary{TotalWeeks: len(entries)}
	var first, last *history.Entry
	for i := range entries {
		e := &entries[i]
		s.TotalTasks += e.Metrics.TotalTasks
		s.CompletedTasks += e.Metrics.CompletedTasks
		if first == nil || before(e, first) {
			first = e
		}
		if last == nil || before(last, e) {
			last = e
		}
	}
	if first != nil {
		s.FirstWeek = first.DateRange
		s.LastWeek = last.DateRange
	}
	return s
}

func before(a, b *history.Entry) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.WeekNumber < b.WeekNumber
}
