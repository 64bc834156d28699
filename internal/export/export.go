// Package export writes history as a versioned JSON bundle or CSV, and
// reads bundles back with validation and migration from older layouts.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fyrsmithlabs/weekpulse/internal/analytics"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// Version is the bundle format written by this package.
const Version = "1.0.0"

// MaxImportSize bounds the bundle size Import will read.
const MaxImportSize = 10 << 20

// ErrInvalidBundle wraps every import validation failure.
var ErrInvalidBundle = errors.New("invalid export bundle")

// Bundle is the full export.
type Bundle struct {
	Version    string           `json:"version"`
	ExportDate time.Time        `json:"exportDate"`
	Weeks      []history.Entry  `json:"weeks"`
	Categories []task.Info      `json:"categories"`
	Analytics  analytics.Report `json:"analytics"`
}

// NewBundle assembles a bundle. Nil categories mean the default catalog.
func NewBundle(entries []history.Entry, categories []task.Info, report analytics.Report, exportDate time.Time) Bundle {
	if len(categories) == 0 {
		categories = task.Catalog()
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return Bundle{
		Version:    Version,
		ExportDate: exportDate.UTC(),
		Weeks:      entries,
		Categories: categories,
		Analytics:  report,
	}
}

// JSON renders entries as an indented bundle stamped with the current time.
func JSON(entries []history.Entry, categories []task.Info, report analytics.Report) ([]byte, error) {
	return Encode(NewBundle(entries, categories, report, time.Now()))
}

// Encode renders b as indented JSON.
func Encode(b Bundle) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	return data, nil
}

// rawBundle accepts current and legacy layouts. Early exports named the
// weeks array "weekData" and could omit categories and analytics.
type rawBundle struct {
	Version    string            `json:"version"`
	ExportDate time.Time         `json:"exportDate"`
	Weeks      []history.Entry   `json:"weeks"`
	WeekData   []history.Entry   `json:"weekData"`
	Categories []task.Info       `json:"categories"`
	Analytics  *analytics.Report `json:"analytics"`
}

var validate = validator.New()

// Import reads and validates a bundle. Entries without an ID or creation time
// get one whatever the version, stamped with now. Bundles from other versions
// are also migrated: missing categories are filled from the catalog and
// analytics are recomputed.
func Import(r io.Reader, now time.Time) (Bundle, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return Bundle{}, fmt.Errorf("reading bundle: %w", err)
	}
	if len(data) > MaxImportSize {
		return Bundle{}, fmt.Errorf("%w: larger than %d bytes", ErrInvalidBundle, MaxImportSize)
	}

	var raw rawBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if raw.Version == "" {
		return Bundle{}, fmt.Errorf("%w: missing version", ErrInvalidBundle)
	}
	weeks := raw.Weeks
	if len(weeks) == 0 {
		weeks = raw.WeekData
	}
	for i, e := range weeks {
		if err := validateEntry(e); err != nil {
			return Bundle{}, fmt.Errorf("%w: week %d: %v", ErrInvalidBundle, i, err)
		}
	}

	b := Bundle{
		Version:    raw.Version,
		ExportDate: raw.ExportDate,
		Weeks:      weeks,
		Categories: raw.Categories,
	}
	if raw.Analytics != nil {
		b.Analytics = *raw.Analytics
	}
	if b.Weeks == nil {
		b.Weeks = []history.Entry{}
	}
	for i := range b.Weeks {
		b.Weeks[i].Metrics.Normalize()
	}

	backfill(b.Weeks, now.UTC())
	if raw.Version != Version {
		migrate(&b, raw.Analytics == nil)
	}
	return b, nil
}

func backfill(weeks []history.Entry, now time.Time) {
	for i := range weeks {
		if weeks[i].ID == "" {
			weeks[i].ID = uuid.New().String()
		}
		if weeks[i].CreatedAt.IsZero() {
			weeks[i].CreatedAt = now
		}
	}
}

func migrate(b *Bundle, recompute bool) {
	if len(b.Categories) == 0 {
		b.Categories = task.Catalog()
	}
	if recompute {
		b.Analytics = analytics.Analyze(b.Weeks)
	}
	b.Version = Version
}

func validateEntry(e history.Entry) error {
	if err := validate.Var(e.WeekNumber, "min=1,max=53"); err != nil {
		return fmt.Errorf("week number %d out of range", e.WeekNumber)
	}
	if err := validate.Var(e.Year, "min=1970,max=9999"); err != nil {
		return fmt.Errorf("year %d out of range", e.Year)
	}
	if err := validate.Var(e.Metrics.CompletionRate, "min=0,max=100"); err != nil {
		return fmt.Errorf("completion rate %d out of range", e.Metrics.CompletionRate)
	}
	for c, rate := range e.Metrics.CategoryProgress {
		if err := validate.Var(rate, "min=0,max=100"); err != nil {
			return fmt.Errorf("%s rate %d out of range", c, rate)
		}
	}
	return nil
}
