// Package snapshot computes the weekly metrics snapshot from a task list.
package snapshot

import (
	"math"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// Snapshot is the aggregate view of one week's tasks.
type Snapshot struct {
	// CompletionRate is round(100 * completed / total), 0 for an empty week.
	CompletionRate int `json:"completionRate"`

	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`

	// HighPriorityCompleted counts completed S-priority tasks.
	HighPriorityCompleted int `json:"highPriorityCompleted"`

	// CategoryProgress holds a completion rate for each tracked category.
	// Every tracked category is present, untouched ones at 0.
	CategoryProgress map[task.Category]int `json:"categoryProgress"`

	EnergyDistribution   map[task.Energy]int   `json:"energyDistribution"`
	PriorityDistribution map[task.Priority]int `json:"priorityDistribution"`

	// EnergyCompleted and PriorityCompleted count completed tasks per level.
	EnergyCompleted   map[task.Energy]int   `json:"energyCompleted"`
	PriorityCompleted map[task.Priority]int `json:"priorityCompleted"`

	CreatedAt time.Time `json:"createdAt"`
}

// Rate returns round(100 * part / whole), or 0 when whole is 0.
// Halves round away from zero.
func Rate(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// Builder builds snapshots. The zero value stamps snapshots with time.Now.
type Builder struct {
	Now func() time.Time
}

// Build computes a snapshot of tasks in a single pass. It never fails.
func (b Builder) Build(tasks []task.Task) Snapshot {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	var completed, highPriorityCompleted int
	catTotal := make(map[task.Category]int, len(task.Categories))
	catDone := make(map[task.Category]int, len(task.Categories))
	energy := map[task.Energy]int{task.EnergyHigh: 0, task.EnergyMedium: 0, task.EnergyLow: 0}
	priority := map[task.Priority]int{task.PriorityS: 0, task.PriorityA: 0, task.PriorityB: 0}
	energyDone := map[task.Energy]int{task.EnergyHigh: 0, task.EnergyMedium: 0, task.EnergyLow: 0}
	priorityDone := map[task.Priority]int{task.PriorityS: 0, task.PriorityA: 0, task.PriorityB: 0}

	for _, t := range tasks {
		catTotal[t.Category]++
		energy[t.Energy]++
		priority[t.Priority]++
		if t.Completed {
			completed++
			catDone[t.Category]++
			energyDone[t.Energy]++
			priorityDone[t.Priority]++
			if t.Priority == task.PriorityS {
				highPriorityCompleted++
			}
		}
	}

	progress := make(map[task.Category]int, len(task.ProgressCategories))
	for _, c := range task.ProgressCategories {
		progress[c] = Rate(catDone[c], catTotal[c])
	}

	return Snapshot{
		CompletionRate:        Rate(completed, len(tasks)),
		TotalTasks:            len(tasks),
		CompletedTasks:        completed,
		HighPriorityCompleted: highPriorityCompleted,
		CategoryProgress:      progress,
		EnergyDistribution:    energy,
		PriorityDistribution:  priority,
		EnergyCompleted:       energyDone,
		PriorityCompleted:     priorityDone,
		CreatedAt:             now().UTC(),
	}
}

// Build computes a snapshot stamped with the current time.
func Build(tasks []task.Task) Snapshot {
	return Builder{}.Build(tasks)
}

// Normalize fills any missing category, energy or priority keys with 0.
// Snapshots decoded from older exports may lack them. Older snapshots also
// lack completed counts per priority; S is then taken from
// HighPriorityCompleted.
func (s *Snapshot) Normalize() {
	if s.CategoryProgress == nil {
		s.CategoryProgress = make(map[task.Category]int, len(task.ProgressCategories))
	}
	for _, c := range task.ProgressCategories {
		if _, ok := s.CategoryProgress[c]; !ok {
			s.CategoryProgress[c] = 0
		}
	}
	if s.EnergyDistribution == nil {
		s.EnergyDistribution = make(map[task.Energy]int, len(task.Energies))
	}
	for _, e := range task.Energies {
		if _, ok := s.EnergyDistribution[e]; !ok {
			s.EnergyDistribution[e] = 0
		}
	}
	if s.PriorityDistribution == nil {
		s.PriorityDistribution = make(map[task.Priority]int, len(task.Priorities))
	}
	for _, p := range task.Priorities {
		if _, ok := s.PriorityDistribution[p]; !ok {
			s.PriorityDistribution[p] = 0
		}
	}
	if s.EnergyCompleted == nil {
		s.EnergyCompleted = make(map[task.Energy]int, len(task.Energies))
	}
	for _, e := range task.Energies {
		if _, ok := s.EnergyCompleted[e]; !ok {
			s.EnergyCompleted[e] = 0
		}
	}
	if s.PriorityCompleted == nil {
		s.PriorityCompleted = map[task.Priority]int{task.PriorityS: s.HighPriorityCompleted}
	}
	for _, p := range task.Priorities {
		if _, ok := s.PriorityCompleted[p]; !ok {
			s.PriorityCompleted[p] = 0
		}
	}
}
