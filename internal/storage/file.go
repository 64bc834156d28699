package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const fileExt = ".json"

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// File stores each key as <dir>/<key>.json. Writes go through a temp file
// and rename so readers never see a partial value.
type File struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	lastWrite map[string][]byte // suppresses watch events for our own writes
	closed    bool
	watchers  []*fsnotify.Watcher
}

// NewFile creates a file-backed store rooted at dir, creating it with 0700
// permissions if needed.
func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}
	return &File{dir: dir, logger: logger, lastWrite: make(map[string][]byte)}, nil
}

// Dir returns the root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if f.isClosed() {
		return nil, ErrClosed
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", key, err)
	}
	// Record before the rename so the resulting watch event is recognized.
	prev, hadPrev := f.lastWrite[key]
	f.lastWrite[key] = append([]byte(nil), value...)
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		if hadPrev {
			f.lastWrite[key] = prev
		} else {
			delete(f.lastWrite, key)
		}
		cleanup()
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	f.lastWrite[key] = nil
	return nil
}

// Close stops all watchers.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for _, w := range f.watchers {
		_ = w.Close()
	}
	f.watchers = nil
	return nil
}

func (f *File) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Watch reports keys whose files were changed by another process, such as a
// hand edit or a sync tool. Changes written through this store are not
// reported.
func (f *File) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := w.Add(f.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", f.dir, err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = w.Close()
		return nil, ErrClosed
	}
	f.watchers = append(f.watchers, w)
	f.mu.Unlock()

	out := make(chan string, 8)
	go f.processEvents(ctx, w, out)
	return out, nil
}

func (f *File) processEvents(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			key, ok := f.keyFor(event.Name)
			if !ok || !f.changedExternally(key) {
				continue
			}
			select {
			case out <- key:
			case <-ctx.Done():
				_ = w.Close()
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("store watcher error", zap.Error(err))
		}
	}
}

// keyFor maps a file path back to its key, ignoring temp files.
func (f *File) keyFor(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(base, fileExt)
	return key, validateKey(key) == nil
}

// changedExternally compares the file on disk with the last value this store
// wrote for key.
func (f *File) changedExternally(key string) bool {
	current, err := os.ReadFile(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	last, seen := f.lastWrite[key]
	if seen && bytes.Equal(last, current) {
		return false
	}
	f.lastWrite[key] = current
	return true
}
