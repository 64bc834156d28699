package goals

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/storage"
)

// DefaultHistoryLimit is how many weekly snapshots are kept.
const DefaultHistoryLimit = 10

// Tracker owns the current goals and their snapshot history.
type Tracker struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
	limit  int

	mu      sync.RWMutex
	goals   Goals
	history []Snapshot // newest first
	roadmap Roadmap
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithHistoryLimit caps the snapshot history.
func WithHistoryLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

// NewTracker loads goals, history and the roadmap, falling back to Initial,
// an empty history and InitialRoadmap.
func NewTracker(ctx context.Context, kv storage.KV, opts ...Option) *Tracker {
	t := &Tracker{
		kv:     kv,
		logger: zap.NewNop(),
		now:    time.Now,
		limit:  DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.goals = Initial()
	var stored Goals
	if t.load(ctx, storage.KeyGoals, &stored) && len(stored) > 0 {
		t.goals = stored
	}
	var history []Snapshot
	if t.load(ctx, storage.KeyGoalsHistory, &history) {
		t.history = history
	}
	if len(t.history) > t.limit {
		t.history = t.history[:t.limit]
	}
	var roadmap Roadmap
	if t.load(ctx, storage.KeyRoadmap, &roadmap) && len(roadmap.Phases) > 0 {
		t.roadmap = roadmap
	} else {
		t.roadmap = InitialRoadmap(t.now())
	}
	return t
}

// Goals returns the current goals.
func (t *Tracker) Goals() Goals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.goals.Clone()
}

// History returns snapshots, newest first.
func (t *Tracker) History() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Snapshot(nil), t.history...)
}

// Update replaces the goals. The previous goals are recorded as a snapshot
// for the current ISO week: an existing snapshot for that week is replaced in
// place, otherwise the snapshot is prepended and the oldest evicted past the
// limit.
func (t *Tracker) Update(ctx context.Context, next Goals) error {
	if err := next.Validate(); err != nil {
		return err
	}

	now := t.now().UTC()
	year, week := now.ISOWeek()

	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{Date: now, WeekNumber: week, Year: year, Goals: t.goals.Clone()}
	replaced := false
	for i := range t.history {
		if t.history[i].WeekNumber == week && t.history[i].Year == year {
			t.history[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		t.history = append([]Snapshot{snap}, t.history...)
		if len(t.history) > t.limit {
			t.history = t.history[:t.limit]
		}
	}

	t.goals = next.Clone()
	t.save(ctx, storage.KeyGoalsHistory, t.history)
	t.save(ctx, storage.KeyGoals, t.goals)
	return nil
}

// WeeklyGrowth returns the current value of platform minus its value in the
// latest snapshot. It is 0 with fewer than two snapshots or for textual
// goals.
func (t *Tracker) WeeklyGrowth(platform string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.history) < 2 {
		return 0
	}
	goal, ok := t.goals[platform]
	if !ok {
		return 0
	}
	current, ok := goal.Current.Numeric()
	if !ok {
		current = 0
	}
	previous := current
	if prev, ok := t.history[0].Goals[platform]; ok {
		if n, ok := prev.Current.Numeric(); ok {
			previous = n
		}
	}
	return current - previous
}

// GrowthTrend returns up to weeks values for platform, oldest first, ending
// with the current value. weeks <= 0 means 4.
func (t *Tracker) GrowthTrend(platform string, weeks int) []float64 {
	if weeks <= 0 {
		weeks = 4
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	sorted := append([]Snapshot(nil), t.history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	trend := []float64{numericOrZero(t.goals[platform].Current)}
	for i := 0; i < weeks-1 && i < len(sorted); i++ {
		trend = append(trend, numericOrZero(sorted[i].Goals[platform].Current))
	}

	for i, j := 0, len(trend)-1; i < j; i, j = i+1, j-1 {
		trend[i], trend[j] = trend[j], trend[i]
	}
	return trend
}

// LastUpdate returns the newest snapshot.
func (t *Tracker) LastUpdate() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.history) == 0 {
		return Snapshot{}, false
	}
	return t.history[0], true
}

func numericOrZero(v Value) float64 {
	if n, ok := v.Numeric(); ok {
		return n
	}
	return 0
}

func (t *Tracker) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := t.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn("loading goals", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.logger.Warn("stored goals are not valid JSON", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (t *Tracker) save(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		t.logger.Error("encoding goals", zap.String("key", key), zap.Error(err))
		return
	}
	if err := t.kv.Set(ctx, key, data); err != nil {
		t.logger.Error("persisting goals", zap.String("key", key), zap.Error(err))
	}
}
