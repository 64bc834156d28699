package weekly

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/export"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

var fixedNow = time.Date(2025, 1, 12, 19, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeGenerator struct {
	err      error
	calls    int
	lastSnap snapshot.Snapshot
}

func (f *fakeGenerator) Generate(_ context.Context, _ reflection.Profile, m snapshot.Snapshot, _ reflection.Input, _ []task.Task) (insight.Result, error) {
	f.calls++
	f.lastSnap = m
	if f.err != nil {
		return insight.Result{Cause: f.err}, f.err
	}
	ins := insight.RuleEngine{Now: clock}.Build(m, reflection.Input{})
	return insight.Result{Insight: ins, Engine: insight.EngineRuleBased}, nil
}

func newTestService(t *testing.T, gen Generator) (*Service, *history.Store) {
	t.Helper()
	ctx := context.Background()
	kv := storage.NewMemory()
	hist := history.NewStore(ctx, kv, history.WithClock(clock))
	svc, err := NewService(Options{
		History:   hist,
		Profiles:  reflection.NewProfileStore(ctx, kv, reflection.WithProfileClock(clock)),
		Generator: gen,
		Now:       clock,
	})
	require.NoError(t, err)
	return svc, hist
}

func sampleTasks() []task.Task {
	done := fixedNow
	return []task.Task{
		{ID: 1, Title: "Write note article", Category: task.CategoryNote, Priority: task.PriorityS, Energy: task.EnergyHigh, Completed: true, CompletedDate: &done},
		{ID: 2, Title: "Edit video", Category: task.CategoryYouTube, Priority: task.PriorityA, Energy: task.EnergyMedium},
	}
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestService_Snapshot(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})

	snap, err := svc.Snapshot(sampleTasks())
	require.NoError(t, err)
	assert.Equal(t, 50, snap.CompletionRate)
	assert.Equal(t, fixedNow, snap.CreatedAt)

	_, err = svc.Snapshot([]task.Task{{ID: 1}})
	assert.ErrorIs(t, err, task.ErrInvalidTask)
}

func TestService_SaveWeek_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	svc, hist := newTestService(t, gen)

	first, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks(), GenerateInsight: true})
	require.NoError(t, err)
	require.NotNil(t, first.Result)
	require.NotNil(t, first.Entry.AIInsight)
	assert.Equal(t, "2025/01/06 - 01/12", first.Entry.DateRange)
	assert.Equal(t, 1, gen.calls)

	second, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks()[:1], Reflection: reflection.Input{Wins: "shipped"}})
	require.NoError(t, err)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, first.Entry.CreatedAt, second.Entry.CreatedAt)
	assert.Equal(t, 100, second.Entry.Metrics.CompletionRate)
	assert.NotNil(t, second.Entry.AIInsight, "existing insight kept")
	assert.Nil(t, second.Result)
	assert.Equal(t, 1, gen.calls)

	assert.Equal(t, 1, hist.Len())
}

func TestService_SaveWeek_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	ctx := context.Background()

	_, err := svc.SaveWeek(ctx, SaveRequest{Week: 53, Year: 2025})
	assert.ErrorIs(t, err, ErrInvalidWeek)

	_, err = svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Reflection: reflection.Input{Mood: "giddy"}})
	assert.ErrorIs(t, err, reflection.ErrInvalid)
}

func TestService_SaveWeek_GenerationFailureSavesNothing(t *testing.T) {
	svc, hist := newTestService(t, &fakeGenerator{err: insight.ErrCredentialMissing})

	_, err := svc.SaveWeek(context.Background(), SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks(), GenerateInsight: true})
	assert.ErrorIs(t, err, insight.ErrCredentialMissing)
	assert.Equal(t, 0, hist.Len())
}

func TestService_RegenerateInsight(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	svc, _ := newTestService(t, gen)

	_, err := svc.RegenerateInsight(ctx, 2, 2025, nil)
	assert.ErrorIs(t, err, ErrWeekNotFound)

	saved, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks()})
	require.NoError(t, err)
	assert.Nil(t, saved.Entry.AIInsight)

	res, err := svc.RegenerateInsight(ctx, 2, 2025, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Entry.AIInsight)
	assert.Equal(t, saved.Entry.ID, res.Entry.ID)
	assert.Equal(t, 50, gen.lastSnap.CompletionRate, "stored snapshot used without tasks")

	res, err = svc.RegenerateInsight(ctx, 2, 2025, sampleTasks()[:1])
	require.NoError(t, err)
	assert.Equal(t, 100, res.Entry.Metrics.CompletionRate)

	got, err := svc.Entry(2, 2025)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Metrics.CompletionRate)
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeGenerator{})
	_, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks()})
	require.NoError(t, err)

	b := svc.Export()
	assert.Equal(t, export.Version, b.Version)
	assert.Equal(t, 1, b.Analytics.Weeks)

	svc.ClearHistory(ctx)
	assert.Empty(t, svc.History())

	require.NoError(t, svc.Import(ctx, b))
	assert.Len(t, svc.History(), 1)

	dup := b
	dup.Weeks = append(dup.Weeks, dup.Weeks[0])
	err = svc.Import(ctx, dup)
	assert.True(t, errors.Is(err, history.ErrDuplicateWeek))
}

func TestService_ImportThenSaveImportedWeek(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeGenerator{})

	body := `{"version":"1.0.0","weeks":[{"weekNumber":1,"year":2025},{"weekNumber":2,"year":2025}]}`
	b, err := export.Import(strings.NewReader(body), fixedNow)
	require.NoError(t, err)
	require.NoError(t, svc.Import(ctx, b))

	res, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks()})
	require.NoError(t, err)
	assert.Equal(t, b.Weeks[1].ID, res.Entry.ID)

	entries := svc.History()
	require.Len(t, entries, 2)
	assert.Equal(t, 50, entries[1].Metrics.CompletionRate)
}

func TestService_Import_RejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeGenerator{})

	b := export.NewBundle([]history.Entry{
		{ID: "same", WeekNumber: 1, Year: 2025},
		{ID: "same", WeekNumber: 2, Year: 2025},
	}, nil, analytics.Analyze(nil), fixedNow)

	err := svc.Import(ctx, b)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Empty(t, svc.History())
}

func TestService_Profile(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	tone := "gentle"

	p, err := svc.UpdateProfile(context.Background(), reflection.Patch{Tone: &tone})
	require.NoError(t, err)
	assert.Equal(t, "gentle", p.Tone)
	assert.Equal(t, "gentle", svc.Profile().Tone)
}

func TestService_Analytics(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeGenerator{})
	_, err := svc.SaveWeek(ctx, SaveRequest{Week: 2, Year: 2025, Tasks: sampleTasks()})
	require.NoError(t, err)

	r := svc.Analytics()
	assert.Equal(t, 1, r.Weeks)
	assert.Equal(t, 50, r.AverageCompletionRate)
}
