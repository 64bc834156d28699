package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

var fixedNow = time.Date(2025, 1, 12, 20, 0, 0, 0, time.UTC)

type failingKV struct{ storage.KV }

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("entry-%d", n)
	}
}

func newTestStore(t *testing.T, kv storage.KV, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs())}
	return NewStore(context.Background(), kv, append(base, opts...)...)
}

func entry(id string, week, year int) Entry {
	return Entry{ID: id, WeekNumber: week, Year: year, DateRange: "r", CreatedAt: fixedNow}
}

func TestStore_EmptyOnMissingOrCorrupt(t *testing.T) {
	assert.Empty(t, newTestStore(t, storage.NewMemory()).List())

	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyHistory, []byte("{broken")))
	log := logging.NewTestLogger()
	s := newTestStore(t, kv, WithLogger(log.Underlying()))
	assert.Empty(t, s.List())
	log.AssertLogged(t, zapcore.WarnLevel, "not valid JSON")
}

func TestStore_AddKeepsInsertionOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	s.Add(ctx, entry("a", 2, 2025))
	s.Add(ctx, entry("b", 1, 2025))
	s.Add(ctx, entry("c", 2, 2025))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})

	first, ok := s.FindByWeek(2, 2025)
	require.True(t, ok)
	assert.Equal(t, "a", first.ID, "first match wins")
}

func TestStore_AddUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	require.NoError(t, s.AddUnique(ctx, entry("a", 5, 2025)))
	err := s.AddUnique(ctx, entry("b", 5, 2025))
	assert.ErrorIs(t, err, ErrDuplicateWeek)
	assert.NoError(t, s.AddUnique(ctx, entry("c", 5, 2024)))
	assert.Equal(t, 2, s.Len())
}

func TestStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())
	s.Add(ctx, entry("a", 1, 2025))
	s.Add(ctx, entry("b", 2, 2025))

	updated := entry("a", 1, 2025)
	updated.DateRange = "changed"
	s.Upsert(ctx, updated)
	s.Upsert(ctx, entry("c", 3, 2025))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "changed", list[0].DateRange)
	assert.Equal(t, "c", list[2].ID)
}

func TestStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("appends new week", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		got, err := s.Save(ctx, entry("a", 1, 2025))
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("replaces by natural key", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		original := entry("a", 1, 2025)
		original.CreatedAt = fixedNow.Add(-48 * time.Hour)
		s.Add(ctx, original)

		incoming := entry("z", 1, 2025)
		incoming.DateRange = "new"
		got, err := s.Save(ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, original.CreatedAt, got.CreatedAt)

		list := s.List()
		require.Len(t, list, 1)
		assert.Equal(t, "new", list[0].DateRange)
	})

	t.Run("rejects moving onto a taken week", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		s.Add(ctx, entry("a", 1, 2025))
		s.Add(ctx, entry("b", 2, 2025))

		_, err := s.Save(ctx, entry("b", 1, 2025))
		assert.ErrorIs(t, err, ErrDuplicateWeek)
	})
}

func TestStore_ClearAndPersistence(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	s.Add(ctx, entry("a", 1, 2025))

	reloaded := newTestStore(t, kv)
	require.Len(t, reloaded.List(), 1)
	assert.Len(t, reloaded.List()[0].Metrics.CategoryProgress, len(task.ProgressCategories), "snapshots are normalized on load")

	s.Clear(ctx)
	assert.Empty(t, s.List())

	data, err := kv.Get(ctx, storage.KeyHistory)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestStore_PersistFailureKeepsMutation(t *testing.T) {
	log := logging.NewTestLogger()
	s := newTestStore(t, failingKV{KV: storage.NewMemory()}, WithLogger(log.Underlying()))

	s.Add(context.Background(), entry("a", 1, 2025))

	assert.Equal(t, 1, s.Len())
	log.AssertLogged(t, zapcore.ErrorLevel, "persisting history")
}

func TestStore_CreateEntry(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	done := fixedNow
	tasks := []task.Task{
		{ID: 1, Category: task.CategoryNote, Priority: task.PriorityS, Energy: task.EnergyHigh, Completed: true, CompletedDate: &done},
		{ID: 2, Category: task.CategoryNote, Priority: task.PriorityA, Energy: task.EnergyLow},
	}
	ins := &insight.Insight{Summary: "s", Engine: insight.EngineRuleBased}

	fresh := s.CreateEntry(2, 2025, "2025/01/06 - 01/12", tasks, reflection.Input{Wins: "w"}, ins, nil)
	assert.Equal(t, "entry-1", fresh.ID)
	assert.Equal(t, fixedNow, fresh.CreatedAt)
	assert.Equal(t, 50, fresh.Metrics.CompletionRate)
	assert.Equal(t, 1, fresh.Metrics.HighPriorityCompleted)
	assert.Equal(t, "w", fresh.Reflection.Wins)
	assert.Same(t, ins, fresh.AIInsight)

	existing := entry("keep-me", 2, 2025)
	existing.CreatedAt = fixedNow.Add(-time.Hour)
	again := s.CreateEntry(2, 2025, "2025/01/06 - 01/12", tasks[:1], reflection.Input{}, nil, &existing)
	assert.Equal(t, "keep-me", again.ID)
	assert.Equal(t, existing.CreatedAt, again.CreatedAt)
	assert.Equal(t, 100, again.Metrics.CompletionRate, "snapshot is recomputed")
	assert.Nil(t, again.AIInsight)
}

func TestStore_DefaultIDsAreUUIDs(t *testing.T) {
	s := NewStore(context.Background(), storage.NewMemory())
	a := s.CreateEntry(1, 2025, "", nil, reflection.Input{}, nil, nil)
	b := s.CreateEntry(1, 2025, "", nil, reflection.Input{}, nil, nil)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_ConcurrentSave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Save(ctx, entry(fmt.Sprintf("id-%d", i), 7, 2025))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len(), "one entry per week")
}

func TestStore_WatchReloadsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	kv, err := storage.NewFile(dir, nil)
	require.NoError(t, err)
	defer kv.Close()

	s := newTestStore(t, kv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Watch(ctx, kv) }()

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)

	data, err := json.Marshal([]Entry{entry("ext", 9, 2025)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.KeyHistory+".json"), data, 0o600))

	require.Eventually(t, func() bool {
		_, ok := s.FindByWeek(9, 2025)
		return ok
	}, 2*time.Second, 20*time.Millisecond)
}
