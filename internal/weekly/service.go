// Package weekly orchestrates a week's lifecycle: snapshot the tasks,
// generate guidance, and save the result into history under its (week,
// year).
package weekly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/export"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/weekpulse/internal/weekly"

var (
	// ErrInvalidWeek is returned for week numbers outside the ISO year.
	ErrInvalidWeek = errors.New("invalid week")

	// ErrWeekNotFound is returned when no entry exists for (week, year).
	ErrWeekNotFound = errors.New("week not found")

	// ErrDuplicateID is returned when an import carries two entries with the
	// same ID.
	ErrDuplicateID = errors.New("duplicate entry id")
)

// Generator produces insights. *insight.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, profile reflection.Profile, metrics snapshot.Snapshot, in reflection.Input, tasks []task.Task) (insight.Result, error)
}

// Options holds the collaborators of a Service.
type Options struct {
	History   *history.Store
	Profiles  *reflection.ProfileStore
	Generator Generator
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service ties the snapshot builder, insight generator and stores together.
type Service struct {
	history   *history.Store
	profiles  *reflection.ProfileStore
	generator Generator
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates a service. History, Profiles and Generator are
// required.
func NewService(opts Options) (*Service, error) {
	if opts.History == nil {
		return nil, errors.New("history store is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("insight generator is required")
	}
	s := &Service{
		history:   opts.History,
		profiles:  opts.Profiles,
		generator: opts.Generator,
		logger:    logging.Wrap(opts.Logger),
		tracer:    otel.Tracer(instrumentationName),
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Snapshot validates tasks and computes their metrics.
func (s *Service) Snapshot(tasks []task.Task) (snapshot.Snapshot, error) {
	if err := task.ValidateAll(tasks); err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Builder{Now: s.now}.Build(tasks), nil
}

// Insight generates guidance for tasks and a reflection without saving.
func (s *Service) Insight(ctx context.Context, tasks []task.Task, in reflection.Input) (insight.Result, error) {
	metrics, err := s.Snapshot(tasks)
	if err != nil {
		return insight.Result{}, err
	}
	if err := in.Validate(); err != nil {
		return insight.Result{}, err
	}
	return s.generator.Generate(ctx, s.profiles.Get(), metrics, in, tasks)
}

// SaveRequest is the input to SaveWeek.
type SaveRequest struct {
	Week       int
	Year       int
	DateRange  string // defaults to DateRange(Week, Year)
	Tasks      []task.Task
	Reflection reflection.Input
	// GenerateInsight attaches a fresh insight. Otherwise an existing
	// entry's insight is kept.
	GenerateInsight bool
}

// SaveResult is the outcome of SaveWeek.
type SaveResult struct {
	Entry  history.Entry
	Result *insight.Result
}

// SaveWeek snapshots the week, optionally generates an insight and upserts
// the entry by (week, year), keeping the ID and CreatedAt of an existing
// entry.
func (s *Service) SaveWeek(ctx context.Context, req SaveRequest) (SaveResult, error) {
	ctx, span := s.tracer.Start(logging.WithWeek(ctx, req.Week, req.Year), "weekly.save")
	defer span.End()
	span.SetAttributes(attribute.Int("week", req.Week), attribute.Int("year", req.Year))

	if !ValidWeek(req.Week, req.Year) {
		return SaveResult{}, fmt.Errorf("%w: %d/%d", ErrInvalidWeek, req.Week, req.Year)
	}
	if err := task.ValidateAll(req.Tasks); err != nil {
		return SaveResult{}, err
	}
	if err := req.Reflection.Validate(); err != nil {
		return SaveResult{}, err
	}

	var existing *history.Entry
	if e, ok := s.history.FindByWeek(req.Week, req.Year); ok {
		existing = &e
	}

	var (
		ins *insight.Insight
		res *insight.Result
	)
	if existing != nil {
		ins = existing.AIInsight
	}
	if req.GenerateInsight {
		metrics := snapshot.Builder{Now: s.now}.Build(req.Tasks)
		r, err := s.generator.Generate(ctx, s.profiles.Get(), metrics, req.Reflection, req.Tasks)
		if err != nil {
			return SaveResult{}, err
		}
		ins, res = &r.Insight, &r
	}

	dateRange := req.DateRange
	if dateRange == "" {
		dateRange = DateRange(req.Week, req.Year)
	}
	entry := s.history.CreateEntry(req.Week, req.Year, dateRange, req.Tasks, req.Reflection, ins, existing)
	saved, err := s.history.Save(ctx, entry)
	if err != nil {
		return SaveResult{}, err
	}

	s.logger.Info(ctx, "week saved",
		zap.String("entry.id", saved.ID),
		zap.Bool("updated", existing != nil),
		zap.Bool("insight", ins != nil))
	return SaveResult{Entry: saved, Result: res}, nil
}

// RegenerateInsight attaches a fresh insight to an existing entry. With
// tasks the snapshot is recomputed from them; without, the stored snapshot
// is used.
func (s *Service) RegenerateInsight(ctx context.Context, week, year int, tasks []task.Task) (SaveResult, error) {
	ctx, span := s.tracer.Start(logging.WithWeek(ctx, week, year), "weekly.regenerate_insight")
	defer span.End()
	span.SetAttributes(attribute.Int("week", week), attribute.Int("year", year))

	existing, ok := s.history.FindByWeek(week, year)
	if !ok {
		return SaveResult{}, fmt.Errorf("%w: %d/%d", ErrWeekNotFound, week, year)
	}
	if err := task.ValidateAll(tasks); err != nil {
		return SaveResult{}, err
	}

	metrics := existing.Metrics
	if tasks != nil {
		metrics = snapshot.Builder{Now: s.now}.Build(tasks)
	}
	r, err := s.generator.Generate(ctx, s.profiles.Get(), metrics, existing.Reflection, tasks)
	if err != nil {
		return SaveResult{}, err
	}

	var entry history.Entry
	if tasks != nil {
		entry = s.history.CreateEntry(week, year, existing.DateRange, tasks, existing.Reflection, &r.Insight, &existing)
	} else {
		entry = existing
		entry.AIInsight = &r.Insight
	}
	saved, err := s.history.Save(ctx, entry)
	if err != nil {
		return SaveResult{}, err
	}
	s.logger.Info(ctx, "insight regenerated",
		zap.String("engine", string(r.Engine)),
		zap.Bool("fallback", r.Fallback))
	return SaveResult{Entry: saved, Result: &r}, nil
}

// Entry returns the saved entry for (week, year).
func (s *Service) Entry(week, year int) (history.Entry, error) {
	e, ok := s.history.FindByWeek(week, year)
	if !ok {
		return history.Entry{}, fmt.Errorf("%w: %d/%d", ErrWeekNotFound, week, year)
	}
	return e, nil
}

// History returns every saved entry in insertion order.
func (s *Service) History() []history.Entry {
	return s.history.List()
}

// ClearHistory removes every saved entry.
func (s *Service) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
	s.logger.Info(ctx, "history cleared")
}

// Analytics analyzes the saved history.
func (s *Service) Analytics() analytics.Report {
	return analytics.Analyze(s.history.List())
}

// Export returns the history as a bundle.
func (s *Service) Export() export.Bundle {
	entries := s.history.List()
	return export.NewBundle(entries, nil, analytics.Analyze(entries), s.now())
}

// Import replaces history with the bundle's weeks. A bundle with two entries
// for the same week, or two entries sharing an ID, is rejected.
func (s *Service) Import(ctx context.Context, b export.Bundle) error {
	seen := make(map[[2]int]bool, len(b.Weeks))
	ids := make(map[string]bool, len(b.Weeks))
	for _, e := range b.Weeks {
		key := [2]int{e.WeekNumber, e.Year}
		if seen[key] {
			return fmt.Errorf("%w: week %d of %d", history.ErrDuplicateWeek, e.WeekNumber, e.Year)
		}
		seen[key] = true
		if e.ID == "" {
			continue
		}
		if ids[e.ID] {
			return fmt.Errorf("%w: id %q used twice", ErrDuplicateID, e.ID)
		}
		ids[e.ID] = true
	}
	s.history.Replace(ctx, b.Weeks)
	s.logger.Info(ctx, "history imported", zap.Int("weeks", len(b.Weeks)), zap.String("version", b.Version))
	return nil
}

// Profile returns the reflection profile.
func (s *Service) Profile() reflection.Profile {
	return s.profiles.Get()
}

// UpdateProfile applies patch to the reflection profile.
func (s *Service) UpdateProfile(ctx context.Context, patch reflection.Patch) (reflection.Profile, error) {
	return s.profiles.Update(ctx, patch)
}
