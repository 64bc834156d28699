package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvContract runs the behaviour every backend must share.
func kvContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, KeyHistory)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, KeyHistory, []byte(`[{"id":"a"}]`)))
	got, err := kv.Get(ctx, KeyHistory)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, kv.Set(ctx, KeyHistory, []byte(`[]`)))
	got, err = kv.Get(ctx, KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, kv.Set(ctx, KeyProfile, []byte(`{"persona":"INTJ"}`)))

	require.NoError(t, kv.Delete(ctx, KeyHistory))
	_, err = kv.Get(ctx, KeyHistory)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, kv.Delete(ctx, KeyHistory), "deleting a missing key is not an error")

	got, err = kv.Get(ctx, KeyProfile)
	require.NoError(t, err)
	assert.Equal(t, `{"persona":"INTJ"}`, string(got))

	assert.ErrorIs(t, kv.Set(ctx, "../escape", nil), ErrInvalidKey)
	_, err = kv.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	kvContract(t, m)

	// Values are copied.
	buf := []byte("abc")
	require.NoError(t, m.Set(context.Background(), "k", buf))
	buf[0] = 'x'
	got, _ := m.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got))

	require.NoError(t, m.Close())
	_, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, nil)
	require.NoError(t, err)
	defer f.Close()

	kvContract(t, f)

	info, err := os.Stat(filepath.Join(dir, KeyProfile+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files must not linger")
	}
}

func TestFile_WatchReportsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, nil)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := f.Watch(ctx)
	require.NoError(t, err)

	// Our own write is suppressed.
	require.NoError(t, f.Set(ctx, KeyHistory, []byte(`[]`)))

	// An external edit is reported.
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyHistory+".json"), []byte(`[{"id":"x"}]`), 0o600))

	select {
	case key := <-changes:
		assert.Equal(t, KeyHistory, key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	// Channel closes once the context ends.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSQLite_Memory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "sqlite", s.Driver())
	kvContract(t, s)
}

func TestSQLite_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "weekpulse.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyGoals, []byte(`{"note":1}`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, KeyGoals)
	require.NoError(t, err)
	assert.Equal(t, `{"note":1}`, string(got))
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("WEEKPULSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WEEKPULSE_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_ = s.Delete(ctx, KeyHistory)
	_ = s.Delete(ctx, KeyProfile)
	kvContract(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		check   func(*testing.T, KV)
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  config.StorageConfig{Driver: config.StorageMemory},
			check: func(t *testing.T, kv KV) {
				assert.IsType(t, &Memory{}, kv)
			},
		},
		{
			name: "file",
			cfg:  config.StorageConfig{Driver: config.StorageFile, Path: t.TempDir()},
			check: func(t *testing.T, kv KV) {
				_, ok := kv.(Watcher)
				assert.True(t, ok, "file store should support watching")
			},
		},
		{
			name: "sqlite directory",
			cfg:  config.StorageConfig{Driver: config.StorageSQLite, Path: t.TempDir()},
			check: func(t *testing.T, kv KV) {
				assert.Equal(t, "sqlite", kv.(*SQL).Driver())
			},
		},
		{
			name:    "unknown",
			cfg:     config.StorageConfig{Driver: "bolt"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := Open(ctx, tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer kv.Close()
			tt.check(t, kv)
		})
	}
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, ":memory:", sqlitePath(":memory:"))
	assert.Equal(t, "/data/custom.db", sqlitePath("/data/custom.db"))
	assert.Equal(t, filepath.Join("/data", "weekpulse.db"), sqlitePath("/data"))
}
