package mcp

import (
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// taskInput is the tool-facing task shape. Timestamps are omitted since no
// metric depends on them.
type taskInput struct {
	ID             int      `json:"id,omitempty" jsonschema:"Task identifier"`
	Category       string   `json:"category" jsonschema:"One of note, standfm, instagram, youtube, expertise, marketing, business, topform, private, other"`
	Title          string   `json:"title" jsonschema:"Task title"`
	Priority       string   `json:"priority" jsonschema:"S, A or B"`
	Energy         string   `json:"energy" jsonschema:"high, medium or low"`
	Completed      bool     `json:"completed,omitempty" jsonschema:"Whether the task is done"`
	EstimatedHours float64  `json:"estimatedHours,omitempty" jsonschema:"Estimated effort in hours"`
	ActualHours    *float64 `json:"actualHours,omitempty" jsonschema:"Actual effort in hours"`
	Notes          string   `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

type reflectionInput struct {
	Wins          string `json:"wins,omitempty" jsonschema:"What went well"`
	Challenges    string `json:"challenges,omitempty" jsonschema:"What was hard"`
	Learnings     string `json:"learnings,omitempty" jsonschema:"What was learned"`
	Mood          string `json:"mood,omitempty" jsonschema:"low, neutral or high"`
	Energy        string `json:"energy,omitempty" jsonschema:"depleted, balanced or charged"`
	FocusNextWeek string `json:"focusNextWeek,omitempty" jsonschema:"Focus for next week"`
	Notes         string `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

func toTasks(in []taskInput) []task.Task {
	out := make([]task.Task, 0, len(in))
	for _, t := range in {
		out = append(out, task.Task{
			ID:             t.ID,
			Category:       task.Category(t.Category),
			Title:          t.Title,
			Priority:       task.Priority(t.Priority),
			Energy:         task.Energy(t.Energy),
			Completed:      t.Completed,
			EstimatedHours: t.EstimatedHours,
			ActualHours:    t.ActualHours,
			Notes:          t.Notes,
		})
	}
	return out
}

func (r reflectionInput) toReflection() reflection.Input {
	return reflection.Input{
		Wins:          r.Wins,
		Challenges:    r.Challenges,
		Learnings:     r.Learnings,
		Mood:          reflection.Mood(r.Mood),
		Energy:        reflection.EnergyState(r.Energy),
		FocusNextWeek: r.FocusNextWeek,
		Notes:         r.Notes,
	}
}
