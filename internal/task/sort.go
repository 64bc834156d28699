package task

import "sort"

func priorityRank(p Priority) int {
	switch p {
	case PriorityS:
		return 0
	case PriorityA:
		return 1
	default:
		return 2
	}
}

func energyRank(e Energy) int {
	switch e {
	case EnergyHigh:
		return 0
	case EnergyMedium:
		return 1
	default:
		return 2
	}
}

// SortByPriority returns a copy of tasks ordered S before A before B, then
// high energy first. Ties keep their input order.
func SortByPriority(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return energyRank(out[i].Energy) < energyRank(out[j].Energy)
	})
	return out
}

// Filter selects tasks matching every non-zero field of f.
type Filter struct {
	Category  Category
	Priority  Priority
	Energy    Energy
	Completed *bool
}

// Apply returns the tasks matching f, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	var out []Task
	for _, t := range tasks {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Energy != "" && t.Energy != f.Energy {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		out = append(out, t)
	}
	return out
}
