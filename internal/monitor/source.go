// Package monitor is a terminal dashboard over a running weekpulse server.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/client"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	httpapi "github.com/fyrsmithlabs/weekpulse/internal/http"
)

// Source supplies dashboard data. *client.Client implements it.
type Source interface {
	Analytics(ctx context.Context) (analytics.Report, error)
	History(ctx context.Context) ([]history.Entry, error)
	Goals(ctx context.Context) (httpapi.GoalsResponse, error)
}

// Snapshot holds the data behind one dashboard refresh.
type Snapshot struct {
	Report analytics.Report
	Latest *history.Entry
	Goals  []GoalLine
}

// GoalLine is one goal row.
type GoalLine struct {
	Key      string
	Label    string
	Current  string
	Target   string
	Unit     string
	Progress float64
	Growth   float64
}

// Fetch loads a snapshot from src. A server without goal tracking yields no
// goal rows rather than an error.
func Fetch(ctx context.Context, src Source) (Snapshot, error) {
	report, err := src.Analytics(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	entries, err := src.History(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Report: report, Latest: latest(entries)}

	goals, err := src.Goals(ctx)
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
	case err != nil:
		return Snapshot{}, err
	default:
		snap.Goals = goalLines(goals)
	}
	return snap, nil
}

func latest(entries []history.Entry) *history.Entry {
	if len(entries) == 0 {
		return nil
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Year > best.Year || (e.Year == best.Year && e.WeekNumber > best.WeekNumber) {
			best = e
		}
	}
	return &best
}

func goalLines(resp httpapi.GoalsResponse) []GoalLine {
	lines := make([]GoalLine, 0, len(resp.Goals))
	for key, g := range resp.Goals {
		lines = append(lines, GoalLine{
			Key:      key,
			Label:    g.Label,
			Current:  g.Current.String(),
			Target:   g.Target.String(),
			Unit:     g.Unit,
			Progress: g.Progress,
			Growth:   g.WeeklyGrowth,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Key < lines[j].Key })
	return lines
}
