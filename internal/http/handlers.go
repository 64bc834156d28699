package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/export"
	"github.com/fyrsmithlabs/weekpulse/internal/goals"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.config.Version,
		Weeks:   len(s.registry.Weekly().History()),
	})
}

func (s *Server) handleSnapshot(c echo.Context) error {
	var req TasksRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn(c.Request().Context(), "invalid snapshot request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	snap, err := s.registry.Weekly().Snapshot(req.Tasks)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleInsight(c echo.Context) error {
	var req InsightRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn(c.Request().Context(), "invalid insight request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.registry.Weekly().Insight(c.Request().Context(), req.Tasks, req.Reflection)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newInsightResponse(&res))
}

func (s *Server) handleListHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.Weekly().History())
}

func (s *Server) handleClearHistory(c echo.Context) error {
	s.registry.Weekly().ClearHistory(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetWeek(c echo.Context) error {
	week, year, err := weekParams(c)
	if err != nil {
		return err
	}
	e, err := s.registry.Weekly().Entry(week, year)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) handleSaveWeek(c echo.Context) error {
	week, year, err := weekParams(c)
	if err != nil {
		return err
	}
	var req SaveWeekRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn(c.Request().Context(), "invalid save request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.registry.Weekly().SaveWeek(c.Request().Context(), weekly.SaveRequest{
		Week:            week,
		Year:            year,
		DateRange:       req.DateRange,
		Tasks:           req.Tasks,
		Reflection:      req.Reflection,
		GenerateInsight: req.GenerateInsight,
	})
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, WeekResponse{Entry: res.Entry, Insight: newInsightResponse(res.Result)})
}

func (s *Server) handleRegenerateInsight(c echo.Context) error {
	week, year, err := weekParams(c)
	if err != nil {
		return err
	}
	var req RegenerateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	res, err := s.registry.Weekly().RegenerateInsight(c.Request().Context(), week, year, req.Tasks)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, WeekResponse{Entry: res.Entry, Insight: newInsightResponse(res.Result)})
}

func (s *Server) handleAnalytics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.Weekly().Analytics())
}

func (s *Server) handleGetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, newProfileResponse(s.registry.Weekly().Profile()))
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var patch reflection.Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.registry.Weekly().UpdateProfile(c.Request().Context(), patch)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(p))
}

func (s *Server) handleGetGoals(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	return c.JSON(http.StatusOK, goalsResponse(tracker))
}

func (s *Server) handleUpdateGoals(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	var next goals.Goals
	if err := c.Bind(&next); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := tracker.Update(c.Request().Context(), next); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, goalsResponse(tracker))
}

func (s *Server) handleGoalsHistory(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	return c.JSON(http.StatusOK, tracker.History())
}

func (s *Server) handleGetRoadmap(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	return c.JSON(http.StatusOK, newRoadmapResponse(tracker.Roadmap()))
}

func (s *Server) handleSetMilestone(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	var req MilestoneRequest
	if err := c.Bind(&req); err != nil || req.Achieved == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "achieved is required")
	}
	r, err := tracker.SetAchieved(c.Request().Context(), c.Param("phase"), c.Param("goal"), *req.Achieved)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newRoadmapResponse(r))
}

func (s *Server) handleToggleMilestone(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	r, err := tracker.ToggleAchieved(c.Request().Context(), c.Param("phase"), c.Param("goal"))
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newRoadmapResponse(r))
}

func (s *Server) handleSetCurrentPhase(c echo.Context) error {
	tracker := s.registry.Goals()
	if tracker == nil {
		return echo.NewHTTPError(http.StatusNotFound, "goal tracking is disabled")
	}
	var req CurrentPhaseRequest
	if err := c.Bind(&req); err != nil || req.Phase == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phase is required")
	}
	r, err := tracker.SetCurrentPhase(c.Request().Context(), req.Phase)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, newRoadmapResponse(r))
}

func (s *Server) handleExport(c echo.Context) error {
	svc := s.registry.Weekly()
	stamp := time.Now().UTC().Format("2006-01-02")

	switch c.QueryParam("format") {
	case "", "json":
		data, err := export.Encode(svc.Export())
		if err != nil {
			return s.httpError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="weekpulse-`+stamp+`.json"`)
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
	case "csv":
		var buf bytes.Buffer
		if err := export.CSV(&buf, svc.History()); err != nil {
			return s.httpError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="weekpulse-`+stamp+`.csv"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be json or csv")
	}
}

func (s *Server) handleImport(c echo.Context) error {
	b, err := export.Import(c.Request().Body, time.Now())
	if err != nil {
		return s.httpError(c, err)
	}
	if err := s.registry.Weekly().Import(c.Request().Context(), b); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": len(b.Weeks)})
}

func goalsResponse(t *goals.Tracker) GoalsResponse {
	current := t.Goals()
	resp := GoalsResponse{Goals: make(map[string]GoalStatus, len(current))}
	for key, g := range current {
		resp.Goals[key] = GoalStatus{
			Target:       g.Target,
			Current:      g.Current,
			Label:        g.Label,
			Unit:         g.Unit,
			Progress:     g.Progress(),
			WeeklyGrowth: t.WeeklyGrowth(key),
		}
	}
	if last, ok := t.LastUpdate(); ok {
		resp.Updated = &last.Date
	}
	return resp
}

func weekParams(c echo.Context) (week, year int, err error) {
	year, err = strconv.Atoi(c.Param("year"))
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "year must be a number")
	}
	week, err = strconv.Atoi(c.Param("week"))
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "week must be a number")
	}
	if !weekly.ValidWeek(week, year) {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "week is out of range for year")
	}
	return week, year, nil
}

// httpError maps domain errors onto HTTP status codes.
func (s *Server) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, reflection.ErrInvalid),
		errors.Is(err, goals.ErrInvalidGoals),
		errors.Is(err, export.ErrInvalidBundle),
		errors.Is(err, weekly.ErrInvalidWeek):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, weekly.ErrWeekNotFound),
		errors.Is(err, goals.ErrRoadmapNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, history.ErrDuplicateWeek),
		errors.Is(err, weekly.ErrDuplicateID):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, insight.ErrCredentialMissing):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, insight.ErrTransport),
		errors.Is(err, insight.ErrNonSuccessStatus),
		errors.Is(err, insight.ErrMalformedResponse):
		return echo.NewHTTPError(http.StatusBadGateway, "insight provider failed: "+insight.Reason(err))
	default:
		ctx := c.Request().Context()
		logging.FromContext(ctx).Error(ctx, "request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
