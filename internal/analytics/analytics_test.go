package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

func week(n, rate int) history.Entry {
	m := snapshot.Snapshot{CompletionRate: rate, TotalTasks: 10}
	m.Normalize()
	return history.Entry{ID: "w", WeekNumber: n, Year: 2025, Metrics: m}
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil)
	assert.Equal(t, 0, r.Weeks)
	assert.Equal(t, 0, r.AverageCompletionRate)
	assert.Empty(t, r.BestCategory)
	assert.NotNil(t, r.WeeklyTrend)
	assert.NotNil(t, r.Insights)
}

func TestAnalyze_AverageAndOrder(t *testing.T) {
	r := Analyze([]history.Entry{week(3, 90), week(1, 60), week(2, 75)})

	assert.Equal(t, 75, r.AverageCompletionRate)
	require.Len(t, r.WeeklyTrend, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{r.WeeklyTrend[0].WeekNumber, r.WeeklyTrend[1].WeekNumber, r.WeeklyTrend[2].WeekNumber})
	assert.Equal(t, 0, r.ImprovementTrend, "needs six weeks")
}

func TestAnalyze_ImprovementTrend(t *testing.T) {
	var entries []history.Entry
	for i, rate := range []int{10, 50, 40, 50, 60, 70, 80} {
		entries = append(entries, week(i+1, rate))
	}
	r := Analyze(entries)
	// last three 60,70,80 = 70; previous three 40,50,50 ~ 46.67
	assert.Equal(t, 23, r.ImprovementTrend)
	assert.Contains(t, r.Insights, InsightImproving)
}

func TestAnalyze_Categories(t *testing.T) {
	a := week(1, 50)
	a.Metrics.CategoryProgress[task.CategoryYouTube] = 100
	a.Metrics.CategoryProgress[task.CategoryNote] = 40
	b := week(2, 50)
	b.Metrics.CategoryProgress[task.CategoryYouTube] = 80
	for _, c := range task.ProgressCategories {
		if c != task.CategoryStandFM {
			b.Metrics.CategoryProgress[c] += 10
		}
	}

	r := Analyze([]history.Entry{a, b})
	assert.Equal(t, task.CategoryYouTube, r.BestCategory)
	assert.Equal(t, task.CategoryStandFM, r.WeakestCategory)
}

func TestAnalyze_StrategicAlignment(t *testing.T) {
	a := week(1, 80)
	a.Metrics.CompletedTasks = 8
	a.Metrics.PriorityDistribution[task.PriorityS] = 4
	a.Metrics.PriorityDistribution[task.PriorityA] = 2
	a.Metrics.PriorityCompleted[task.PriorityS] = 3
	a.Metrics.PriorityCompleted[task.PriorityA] = 2
	a.Metrics.HighPriorityCompleted = 3
	b := week(2, 80)
	b.Metrics.CompletedTasks = 8
	b.Metrics.PriorityDistribution[task.PriorityS] = 4
	b.Metrics.PriorityCompleted[task.PriorityS] = 4
	b.Metrics.HighPriorityCompleted = 4
	b.Metrics.EnergyDistribution[task.EnergyHigh] = 2
	b.Metrics.EnergyCompleted[task.EnergyHigh] = 2

	r := Analyze([]history.Entry{a, b})
	// (3+2+4) of (4+2+4) S and A tasks done
	assert.Equal(t, 90, r.StrategicAlignment)
	assert.Equal(t, 5, r.WeeklyTrend[0].PriorityTasksCompleted)
	assert.Equal(t, 2, r.HighEnergyTasks)
	assert.Equal(t, 2, r.HighEnergyCompleted)
	// high-energy rate 1.0 over overall rate 0.8
	assert.Equal(t, 1.25, r.EnergyOptimization)
	assert.Equal(t, 125, r.EnergyEfficiencyScore)
	assert.Contains(t, r.Insights, InsightStrongAlignment)
	assert.Contains(t, r.Insights, InsightEfficientEnergy)
	assert.NotContains(t, r.Insights, InsightLowEnergyUse)
	assert.NotContains(t, r.Insights, InsightOpenTopPriority)
	assert.NotContains(t, r.Insights, InsightLowCompletion)
}

func TestAnalyze_AlignmentFromOlderSnapshots(t *testing.T) {
	m := snapshot.Snapshot{CompletionRate: 50, TotalTasks: 4, HighPriorityCompleted: 1}
	m.PriorityDistribution = map[task.Priority]int{task.PriorityS: 2}

	r := Analyze([]history.Entry{{WeekNumber: 1, Year: 2025, Metrics: m}})
	assert.Equal(t, 50, r.StrategicAlignment)
}

func TestAnalyze_EnergyWarnings(t *testing.T) {
	a := week(1, 50)
	a.Metrics.CompletedTasks = 5
	a.Metrics.EnergyDistribution[task.EnergyHigh] = 6
	a.Metrics.EnergyCompleted[task.EnergyHigh] = 1

	r := Analyze([]history.Entry{a})
	// (1/6) / (5/10) = 0.33
	assert.Equal(t, 0.33, r.EnergyOptimization)
	assert.Equal(t, 33, r.EnergyEfficiencyScore)
	assert.Contains(t, r.Insights, InsightLowEnergyUse)
	assert.Contains(t, r.Insights, InsightEnergyOverload)
}

func TestAnalyze_EnergyUndefined(t *testing.T) {
	r := Analyze([]history.Entry{week(1, 90)})
	assert.Equal(t, 0.0, r.EnergyOptimization)
	assert.Equal(t, 100, r.EnergyEfficiencyScore)
	assert.NotContains(t, r.Insights, InsightLowEnergyUse)
}

func TestAnalyze_WarningInsights(t *testing.T) {
	a := week(1, 40)
	a.Metrics.PriorityDistribution[task.PriorityS] = 3
	a.Metrics.PriorityCompleted[task.PriorityS] = 1
	a.Metrics.HighPriorityCompleted = 1

	r := Analyze([]history.Entry{a})
	assert.Equal(t, 33, r.StrategicAlignment)
	assert.Equal(t, []string{InsightLowCompletion, InsightLowAlignment, InsightOpenTopPriority}, r.Insights)
}
