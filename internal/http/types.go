package http

import (
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/goals"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Weeks   int    `json:"weeks"`
}

// TasksRequest is the request body for POST /api/v1/snapshot.
type TasksRequest struct {
	Tasks []task.Task `json:"tasks"`
}

// InsightRequest is the request body for POST /api/v1/insights.
type InsightRequest struct {
	Tasks      []task.Task      `json:"tasks"`
	Reflection reflection.Input `json:"reflection"`
}

// InsightResponse wraps a generated insight with how it was produced.
type InsightResponse struct {
	Insight  insight.Insight `json:"insight"`
	Engine   insight.Engine  `json:"engine"`
	Fallback bool            `json:"fallback"`
	Reason   string          `json:"fallbackReason,omitempty"`
}

// SaveWeekRequest is the request body for PUT /api/v1/history/:year/:week.
type SaveWeekRequest struct {
	DateRange       string           `json:"dateRange"`
	Tasks           []task.Task      `json:"tasks"`
	Reflection      reflection.Input `json:"reflection"`
	GenerateInsight bool             `json:"generateInsight"`
}

// RegenerateRequest is the optional body for
// POST /api/v1/history/:year/:week/insight.
type RegenerateRequest struct {
	Tasks []task.Task `json:"tasks"`
}

// WeekResponse is returned by the week mutation endpoints.
type WeekResponse struct {
	Entry   history.Entry    `json:"entry"`
	Insight *InsightResponse `json:"insight,omitempty"`
}

// ProfileResponse is the reflection profile with the credential reduced to
// a presence flag.
type ProfileResponse struct {
	Persona           string    `json:"persona"`
	Tone              string    `json:"tone"`
	HasAPIKey         bool      `json:"hasApiKey"`
	PreferredModel    string    `json:"preferredModel,omitempty"`
	AllowRuleFallback bool      `json:"allowRuleFallback"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// GoalsResponse is the response body for GET /api/v1/goals.
type GoalsResponse struct {
	Goals   map[string]GoalStatus `json:"goals"`
	Updated *time.Time            `json:"lastUpdated,omitempty"`
}

// GoalStatus is a goal with its derived progress and growth.
type GoalStatus struct {
	Target       goals.Value `json:"target"`
	Current      goals.Value `json:"current"`
	Label        string      `json:"label"`
	Unit         string      `json:"unit"`
	Progress     float64     `json:"progress"`
	WeeklyGrowth float64     `json:"weeklyGrowth"`
}

// RoadmapResponse is the long-term roadmap with per-phase progress.
type RoadmapResponse struct {
	Phases       []PhaseStatus `json:"phases"`
	CurrentPhase string        `json:"currentPhase,omitempty"`
	LastUpdated  time.Time     `json:"lastUpdated"`
}

// PhaseStatus is a phase with its achieved share.
type PhaseStatus struct {
	goals.Phase
	Progress int `json:"progress"`
}

// MilestoneRequest is the body for PUT /api/v1/goals/roadmap/:phase/:goal.
type MilestoneRequest struct {
	Achieved *bool `json:"achieved"`
}

// CurrentPhaseRequest is the body for PUT /api/v1/goals/roadmap/current.
type CurrentPhaseRequest struct {
	Phase string `json:"phase"`
}

func newRoadmapResponse(r goals.Roadmap) RoadmapResponse {
	resp := RoadmapResponse{Phases: make([]PhaseStatus, 0, len(r.Phases)), LastUpdated: r.LastUpdated}
	for _, p := range r.Phases {
		resp.Phases = append(resp.Phases, PhaseStatus{Phase: p, Progress: p.Progress()})
		if p.Current {
			resp.CurrentPhase = p.ID
		}
	}
	return resp
}

func newInsightResponse(r *insight.Result) *InsightResponse {
	if r == nil {
		return nil
	}
	resp := &InsightResponse{Insight: r.Insight, Engine: r.Engine, Fallback: r.Fallback}
	if r.Cause != nil {
		resp.Reason = insight.Reason(r.Cause)
	}
	return resp
}

func newProfileResponse(p reflection.Profile) ProfileResponse {
	return ProfileResponse{
		Persona:           p.Persona,
		Tone:              p.Tone,
		HasAPIKey:         p.APIKey.IsSet(),
		PreferredModel:    p.PreferredModel,
		AllowRuleFallback: p.AllowRuleFallback,
		LastUpdated:       p.LastUpdated,
	}
}
