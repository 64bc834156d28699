package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// ErrDuplicateWeek is returned when a write would leave two entries for the
// same (week, year).
var ErrDuplicateWeek = errors.New("entry for week already exists")

// Store is the in-memory history backed by a storage.KV.
//
// Every mutation rewrites the whole collection under storage.KeyHistory. A
// failed write is logged and the in-memory change is kept.
type Store struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu      sync.RWMutex
	entries []Entry
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for load and persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for CreateEntry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the uuid-based entry ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates a store and loads persisted entries. Missing or
// unparseable data yields an empty history.
func NewStore(ctx context.Context, kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = s.load(ctx)
	return s
}

// List returns all entries in insertion order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add appends e without checking its key.
func (s *Store) Add(ctx context.Context, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.persist(ctx)
}

// AddUnique appends e unless an entry for the same week exists.
func (s *Store) AddUnique(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfWeek(e.WeekNumber, e.Year); i >= 0 {
		return fmt.Errorf("%w: week %d of %d", ErrDuplicateWeek, e.WeekNumber, e.Year)
	}
	s.entries = append(s.entries, e)
	s.persist(ctx)
	return nil
}

// Upsert replaces the entry with e.ID in place, or appends e.
func (s *Store) Upsert(ctx context.Context, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfID(e.ID); i >= 0 {
		s.entries[i] = e
	} else {
		s.entries = append(s.entries, e)
	}
	s.persist(ctx)
}

// Save upserts e by its (week, year).
//
// An entry with the same ID is replaced in place unless another entry already
// holds the week, which fails with ErrDuplicateWeek. An unknown ID whose week
// is taken replaces that entry, keeping the stored ID and CreatedAt.
// Otherwise e is appended. Save returns the entry as stored.
func (s *Store) Save(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.indexOfID(e.ID)
	byWeek := s.indexOfWeek(e.WeekNumber, e.Year)

	switch {
	case byID >= 0 && byWeek >= 0 && byID != byWeek:
		return Entry{}, fmt.Errorf("%w: week %d of %d", ErrDuplicateWeek, e.WeekNumber, e.Year)
	case byID >= 0:
		s.entries[byID] = e
	case byWeek >= 0:
		existing := s.entries[byWeek]
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		s.entries[byWeek] = e
	default:
		s.entries = append(s.entries, e)
	}
	s.persist(ctx)
	return e, nil
}

// FindByWeek returns the first entry for week and year.
func (s *Store) FindByWeek(week, year int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOfWeek(week, year); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOfID(id); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persist(ctx)
}

// Replace swaps the whole collection, as after an import.
func (s *Store) Replace(ctx context.Context, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry(nil), entries...)
	s.persist(ctx)
}

// CreateEntry builds an entry for a week, always recomputing the snapshot
// from tasks. When existing is non-nil its ID and CreatedAt are kept.
func (s *Store) CreateEntry(week, year int, dateRange string, tasks []task.Task, in reflection.Input, ins *insight.Insight, existing *Entry) Entry {
	now := s.now().UTC()
	e := Entry{
		WeekNumber: week,
		Year:       year,
		DateRange:  dateRange,
		Metrics:    snapshot.Builder{Now: s.now}.Build(tasks),
		Reflection: in,
		AIInsight:  ins,
	}
	if existing != nil {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = s.newID()
		e.CreatedAt = now
	}
	return e
}

// Reload re-reads the collection from storage.
func (s *Store) Reload(ctx context.Context) {
	entries := s.load(ctx)
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

// Watch reloads the store whenever w reports a change to the history key.
// It returns when ctx is done.
func (s *Store) Watch(ctx context.Context, w storage.Watcher) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching history: %w", err)
	}
	for key := range changes {
		if key != storage.KeyHistory {
			continue
		}
		s.logger.Info("history changed on disk, reloading")
		s.Reload(ctx)
	}
	return nil
}

func (s *Store) indexOfID(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfWeek(week, year int) int {
	for i := range s.entries {
		if s.entries[i].SameWeek(week, year) {
			return i
		}
	}
	return -1
}

func (s *Store) load(ctx context.Context) []Entry {
	data, err := s.kv.Get(ctx, storage.KeyHistory)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("loading history, starting empty", zap.Error(err))
		}
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history is not valid JSON, starting empty", zap.Error(err))
		return nil
	}
	for i := range entries {
		entries[i].Metrics.Normalize()
	}
	return entries
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Error("encoding history", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyHistory, data); err != nil {
		s.logger.Error("persisting history", zap.Int("entries", len(entries)), zap.Error(err))
	}
}
