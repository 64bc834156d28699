// Package client is a small HTTP client for the weekpulse API, used by wpctl
// and the terminal dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	httpapi "github.com/fyrsmithlabs/weekpulse/internal/http"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a weekpulse server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var out httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Insight calls POST /api/v1/insights.
func (c *Client) Insight(ctx context.Context, tasks []task.Task, in reflection.Input) (httpapi.InsightResponse, error) {
	var out httpapi.InsightResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/insights", httpapi.InsightRequest{Tasks: tasks, Reflection: in}, &out)
	return out, err
}

// History calls GET /api/v1/history.
func (c *Client) History(ctx context.Context) ([]history.Entry, error) {
	var out []history.Entry
	err := c.do(ctx, http.MethodGet, "/api/v1/history", nil, &out)
	return out, err
}

// Week calls GET /api/v1/history/:year/:week.
func (c *Client) Week(ctx context.Context, week, year int) (history.Entry, error) {
	var out history.Entry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/history/%d/%d", year, week), nil, &out)
	return out, err
}

// SaveWeek calls PUT /api/v1/history/:year/:week.
func (c *Client) SaveWeek(ctx context.Context, week, year int, req httpapi.SaveWeekRequest) (httpapi.WeekResponse, error) {
	var out httpapi.WeekResponse
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/history/%d/%d", year, week), req, &out)
	return out, err
}

// ClearHistory calls DELETE /api/v1/history.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/history", nil, nil)
}

// Analytics calls GET /api/v1/analytics.
func (c *Client) Analytics(ctx context.Context) (analytics.Report, error) {
	var out analytics.Report
	err := c.do(ctx, http.MethodGet, "/api/v1/analytics", nil, &out)
	return out, err
}

// Goals calls GET /api/v1/goals.
func (c *Client) Goals(ctx context.Context) (httpapi.GoalsResponse, error) {
	var out httpapi.GoalsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/goals", nil, &out)
	return out, err
}

// Roadmap calls GET /api/v1/goals/roadmap.
func (c *Client) Roadmap(ctx context.Context) (httpapi.RoadmapResponse, error) {
	var out httpapi.RoadmapResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/goals/roadmap", nil, &out)
	return out, err
}

// SetMilestone calls PUT /api/v1/goals/roadmap/:phase/:goal.
func (c *Client) SetMilestone(ctx context.Context, phase, goal string, achieved bool) (httpapi.RoadmapResponse, error) {
	var out httpapi.RoadmapResponse
	path := "/api/v1/goals/roadmap/" + url.PathEscape(phase) + "/" + url.PathEscape(goal)
	err := c.do(ctx, http.MethodPut, path, httpapi.MilestoneRequest{Achieved: &achieved}, &out)
	return out, err
}

// SetCurrentPhase calls PUT /api/v1/goals/roadmap/current.
func (c *Client) SetCurrentPhase(ctx context.Context, phase string) (httpapi.RoadmapResponse, error) {
	var out httpapi.RoadmapResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/goals/roadmap/current", httpapi.CurrentPhaseRequest{Phase: phase}, &out)
	return out, err
}

// Profile calls GET /api/v1/profile.
func (c *Client) Profile(ctx context.Context) (httpapi.ProfileResponse, error) {
	var out httpapi.ProfileResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, &out)
	return out, err
}

// UpdateProfile calls PUT /api/v1/profile.
func (c *Client) UpdateProfile(ctx context.Context, patch reflection.Patch) (httpapi.ProfileResponse, error) {
	var out httpapi.ProfileResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/profile", patch, &out)
	return out, err
}

// Export calls GET /api/v1/export and returns the raw document.
func (c *Client) Export(ctx context.Context, format string) ([]byte, error) {
	path := "/api/v1/export"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL+path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var he struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &he) == nil && he.Message != "" {
		msg = he.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
