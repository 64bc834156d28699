// Package task defines the task records that feed weekly metrics.
//
// The metrics and insight pipeline only reads task lists. Mutation helpers
// here exist for the HTTP and CLI surfaces that edit tasks before a week is
// saved.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Priority ranks a task. S outranks A, which outranks B.
type Priority string

const (
	PriorityS Priority = "S"
	PriorityA Priority = "A"
	PriorityB Priority = "B"
)

// Priorities lists every priority from highest to lowest.
var Priorities = []Priority{PriorityS, PriorityA, PriorityB}

// Energy is the effort level a task demands.
type Energy string

const (
	EnergyHigh   Energy = "high"
	EnergyMedium Energy = "medium"
	EnergyLow    Energy = "low"
)

// Energies lists every energy level from highest to lowest.
var Energies = []Energy{EnergyHigh, EnergyMedium, EnergyLow}

// Task is a unit of planned work for the week.
type Task struct {
	ID             int        `json:"id" validate:"gte=0"`
	Category       Category   `json:"category" validate:"required,category"`
	Title          string     `json:"title" validate:"required,lte=200"`
	Priority       Priority   `json:"priority" validate:"required,oneof=S A B"`
	Energy         Energy     `json:"energy" validate:"required,oneof=high medium low"`
	Completed      bool       `json:"completed"`
	CompletedDate  *time.Time `json:"completedDate"`
	EstimatedHours float64    `json:"estimatedHours" validate:"gte=0"`
	ActualHours    *float64   `json:"actualHours,omitempty" validate:"omitempty,gte=0"`
	Notes          string     `json:"notes,omitempty" validate:"lte=1000"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

var (
	// ErrInvalidTask wraps every validation failure.
	ErrInvalidTask = errors.New("invalid task")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		t := sl.Current().Interface().(Task)
		if t.Completed != (t.CompletedDate != nil) {
			sl.ReportError(t.CompletedDate, "CompletedDate", "completedDate", "completedmatch", "")
		}
		if !t.CreatedAt.IsZero() && t.UpdatedAt.Before(t.CreatedAt) {
			sl.ReportError(t.UpdatedAt, "UpdatedAt", "updatedAt", "gtecreated", "")
		}
	}, Task{})
	return v
}

// Validate checks field constraints and the completion-timestamp invariant.
func (t Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: task %d: field %s failed %q", ErrInvalidTask, t.ID, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	return nil
}

// ValidateAll validates every task and reports the first failure.
func ValidateAll(tasks []Task) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks the task done at now. Completing a completed task keeps the
// original completion time.
func (t *Task) Complete(now time.Time) {
	if t.Completed && t.CompletedDate != nil {
		return
	}
	t.Completed = true
	ts := now
	t.CompletedDate = &ts
	t.UpdatedAt = now
}

// Reopen clears completion.
func (t *Task) Reopen(now time.Time) {
	if !t.Completed && t.CompletedDate == nil {
		return
	}
	t.Completed = false
	t.CompletedDate = nil
	t.UpdatedAt = now
}

// Toggle flips completion, the way a checkbox in the dashboard does.
func (t *Task) Toggle(now time.Time) {
	if t.Completed {
		t.Reopen(now)
		return
	}
	t.Complete(now)
}
