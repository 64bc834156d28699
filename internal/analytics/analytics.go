// Package analytics summarizes saved weeks: averages, category strengths,
// the recent trend, how well S and A priority work gets done and how
// high-energy work compares with the rest.
package analytics

import (
	"math"
	"sort"

	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// trendWindow is the number of weeks on each side of the improvement trend.
const trendWindow = 3

// WeekTrend is one week's headline numbers.
type WeekTrend struct {
	WeekNumber            int `json:"weekNumber"`
	Year                  int `json:"year"`
	CompletionRate        int `json:"completionRate"`
	HighPriorityCompleted int `json:"highPriorityCompleted"`
	// PriorityTasksCompleted counts completed S and A tasks.
	PriorityTasksCompleted int `json:"priorityTasksCompleted"`
	TotalTasks             int `json:"totalTasks"`
}

// Report is the analysis of a set of weeks.
type Report struct {
	Weeks                 int           `json:"weeks"`
	AverageCompletionRate int           `json:"averageCompletionRate"`
	BestCategory          task.Category `json:"bestPerformingCategory,omitempty"`
	WeakestCategory       task.Category `json:"weakestCategory,omitempty"`
	// ImprovementTrend is the mean rate of the last three weeks minus the
	// three before, in points. It is 0 with fewer than six weeks.
	ImprovementTrend int `json:"improvementTrend"`
	// StrategicAlignment is the completion rate of S and A tasks.
	StrategicAlignment  int `json:"strategicAlignment"`
	HighEnergyTasks     int `json:"highEnergyTasks"`
	HighEnergyCompleted int `json:"highEnergyTasksCompleted"`
	// EnergyOptimization is the high-energy completion rate divided by the
	// overall completion rate, to two decimals. It is 0 without high-energy
	// tasks or without completed tasks.
	EnergyOptimization float64 `json:"energyOptimization"`
	// EnergyEfficiencyScore is EnergyOptimization as a rounded percentage.
	// It is 100 when the ratio is undefined.
	EnergyEfficiencyScore int         `json:"energyEfficiencyScore"`
	WeeklyTrend           []WeekTrend `json:"weeklyTrend"`
	Insights              []string    `json:"insights"`
}

// Analysis messages.
const (
	InsightLowCompletion   = "Completion is below 70%. Consider splitting tasks into smaller pieces."
	InsightImproving       = "Strong improvement trend. Keep this pace."
	InsightDeclining       = "Performance is slipping. Review your load."
	InsightLowAlignment    = "Important task completion is low. Revisit your priorities."
	InsightStrongAlignment = "Strategic execution is on track. Keep going."
	InsightOpenTopPriority = "Top-priority tasks are still open. Review the rest of the list."
	InsightLowEnergyUse    = "High-energy tasks finish less often than they should. Rethink when you schedule them."
	InsightEfficientEnergy = "Energy use is very efficient."
	InsightEnergyOverload  = "Too many high-energy tasks are open. Spread them across the week."
)

// Energy thresholds.
const (
	lowEnergyOptimization = 1.2
	efficientEnergyScore  = 120
	maxOpenHighEnergy     = 3
)

// Analyze builds a report over entries, ordered by (year, week). An empty
// slice yields a zero report.
func Analyze(entries []history.Entry) Report {
	weeks := make([]history.Entry, len(entries))
	copy(weeks, entries)
	sort.SliceStable(weeks, func(i, j int) bool {
		if weeks[i].Year != weeks[j].Year {
			return weeks[i].Year < weeks[j].Year
		}
		return weeks[i].WeekNumber < weeks[j].WeekNumber
	})

	r := Report{
		Weeks:       len(weeks),
		WeeklyTrend: make([]WeekTrend, 0, len(weeks)),
		Insights:    []string{},
	}
	if len(weeks) == 0 {
		return r
	}

	rates := make([]float64, len(weeks))
	catSum := make(map[task.Category]float64, len(task.ProgressCategories))
	var priorityDone, priorityTotal, completed, total int
	for i, e := range weeks {
		m := e.Metrics
		rates[i] = float64(m.CompletionRate)
		for _, c := range task.ProgressCategories {
			catSum[c] += float64(m.CategoryProgress[c])
		}
		done := importantCompleted(m)
		priorityDone += done
		priorityTotal += m.PriorityDistribution[task.PriorityS] + m.PriorityDistribution[task.PriorityA]
		completed += m.CompletedTasks
		total += m.TotalTasks
		r.HighEnergyTasks += m.EnergyDistribution[task.EnergyHigh]
		r.HighEnergyCompleted += m.EnergyCompleted[task.EnergyHigh]
		r.WeeklyTrend = append(r.WeeklyTrend, WeekTrend{
			WeekNumber:             e.WeekNumber,
			Year:                   e.Year,
			CompletionRate:         m.CompletionRate,
			HighPriorityCompleted:  m.HighPriorityCompleted,
			PriorityTasksCompleted: done,
			TotalTasks:             m.TotalTasks,
		})
	}

	r.AverageCompletionRate = round(mean(rates))
	r.BestCategory, r.WeakestCategory = extremes(catSum)
	if len(rates) >= 2*trendWindow {
		recent := rates[len(rates)-trendWindow:]
		previous := rates[len(rates)-2*trendWindow : len(rates)-trendWindow]
		r.ImprovementTrend = round(mean(recent) - mean(previous))
	}
	if priorityTotal > 0 {
		r.StrategicAlignment = round(float64(priorityDone) / float64(priorityTotal) * 100)
	}
	r.EnergyEfficiencyScore = 100
	if r.HighEnergyTasks > 0 && completed > 0 {
		ratio := (float64(r.HighEnergyCompleted) / float64(r.HighEnergyTasks)) / (float64(completed) / float64(total))
		r.EnergyOptimization = math.Round(ratio*100) / 100
		r.EnergyEfficiencyScore = round(ratio * 100)
	}

	r.Insights = insights(r, weeks[len(weeks)-1])
	return r
}

func insights(r Report, latest history.Entry) []string {
	out := []string{}
	if r.AverageCompletionRate < 70 {
		out = append(out, InsightLowCompletion)
	}
	switch {
	case r.ImprovementTrend > 10:
		out = append(out, InsightImproving)
	case r.ImprovementTrend < -10:
		out = append(out, InsightDeclining)
	}
	if r.HighEnergyTasks > 0 && r.EnergyOptimization < lowEnergyOptimization {
		out = append(out, InsightLowEnergyUse)
	}
	if r.EnergyEfficiencyScore > efficientEnergyScore {
		out = append(out, InsightEfficientEnergy)
	}
	switch {
	case r.StrategicAlignment < 60:
		out = append(out, InsightLowAlignment)
	case r.StrategicAlignment > 80:
		out = append(out, InsightStrongAlignment)
	}
	lm := latest.Metrics
	if lm.EnergyDistribution[task.EnergyHigh]-lm.EnergyCompleted[task.EnergyHigh] > maxOpenHighEnergy {
		out = append(out, InsightEnergyOverload)
	}
	if lm.PriorityDistribution[task.PriorityS] > lm.HighPriorityCompleted {
		out = append(out, InsightOpenTopPriority)
	}
	return out
}

// importantCompleted counts completed S and A tasks. Snapshots saved before
// per-priority counts existed only know the S count.
func importantCompleted(m snapshot.Snapshot) int {
	if m.PriorityCompleted == nil {
		return m.HighPriorityCompleted
	}
	return m.PriorityCompleted[task.PriorityS] + m.PriorityCompleted[task.PriorityA]
}

// extremes returns the categories with the highest and lowest summed rate.
// Ties go to the earlier category in task.ProgressCategories.
func extremes(sums map[task.Category]float64) (best, weakest task.Category) {
	for i, c := range task.ProgressCategories {
		if i == 0 || sums[c] > sums[best] {
			best = c
		}
		if i == 0 || sums[c] < sums[weakest] {
			weakest = c
		}
	}
	return best, weakest
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round(x float64) int {
	return int(math.Round(x))
}
