// Package storage provides the key-value persistence layer behind the
// history, profile and goals stores.
//
// Each store serializes its whole collection under a single key, so the
// interface is deliberately small: Get, Set, Delete. Backends are selected by
// config: memory, file (with optional change watching), sqlite and postgres.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Well-known keys.
const (
	KeyHistory      = "weekly-history"
	KeyProfile      = "reflection-profile"
	KeyGoals        = "sns-goals"
	KeyGoalsHistory = "sns-goals-history"
	KeyRoadmap      = "long-term-goals"
)

var (
	// ErrNotFound is returned by Get when the key has never been set.
	ErrNotFound = errors.New("key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")

	// ErrInvalidKey is returned for keys that are empty or contain characters
	// unsafe for file names.
	ErrInvalidKey = errors.New("invalid key")
)

// KV is a byte-oriented key-value store.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Watcher is implemented by backends that can report external changes.
// The channel carries the key that changed and is closed when ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
