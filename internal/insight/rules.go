package insight

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// Rule engine messages.
const (
	FocusOnTrack   = "High completion rate. Keep the current workflow going."
	FocusImproving = "Progress is steady. Put more of your time into S-priority tasks."
	FocusStalled   = "Completion rate is stalling. Re-evaluate task volume and importance."
	FocusTopform   = "TOPFORM work is running smoothly. It is routine now, so write down the key steps."
	FocusMomentum  = "Mood is high. Use the momentum to get ready for next week's harder tasks."
	FocusDefault   = "Organize your key progress points."

	RecommendMorningBlock   = "Lock S-priority tasks into a protected morning block for deep focus."
	RecommendReduceVolume   = "Using this week's reflection, cut the task count and concentrate on important items."
	RecommendClusterEnergy  = "Few high-energy tasks this week. Block time early in the week to cluster high-intensity work."
	RecommendRecovery       = "Mood is low. Deliberately schedule recovery time and start next week lighter."
	RecommendDefault        = "Block about three high-importance tasks ahead of next week."
	EncouragementGeneric    = "Look back at this week's results and plan a similar approach for next week."
	EnergyAdviceDepleted    = "Energy is depleted. Defer non-critical deep-focus work so next week starts light."
	EnergyAdviceSustainable = "Energy is holding up. Schedule high-energy tasks in the morning."

	remoteSummary = "AI suggestion"
)

// Rule thresholds.
const (
	onTrackRate        = 80
	improvingRate      = 60
	topformRate        = 80
	highEnergyFraction = 0.25
)

// RuleEngine builds insights from fixed thresholds. The zero value is ready
// to use and stamps insights with time.Now.
type RuleEngine struct {
	Now func() time.Time
}

// Build returns the rule-based insight for a week. FocusAreas and
// Recommendations are never empty.
func (r RuleEngine) Build(metrics snapshot.Snapshot, in reflection.Input) Insight {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var focus, recs []string

	switch rate := metrics.CompletionRate; {
	case rate >= onTrackRate:
		focus = append(focus, FocusOnTrack)
	case rate >= improvingRate:
		focus = append(focus, FocusImproving)
		recs = append(recs, RecommendMorningBlock)
	default:
		focus = append(focus, FocusStalled)
		recs = append(recs, RecommendReduceVolume)
	}

	if float64(metrics.EnergyDistribution[task.EnergyHigh]) <= float64(metrics.TotalTasks)*highEnergyFraction {
		recs = append(recs, RecommendClusterEnergy)
	}

	if metrics.CategoryProgress[task.CategoryTopform] >= topformRate {
		focus = append(focus, FocusTopform)
	}

	switch in.Mood {
	case reflection.MoodLow:
		recs = append(recs, RecommendRecovery)
	case reflection.MoodHigh:
		focus = append(focus, FocusMomentum)
	}

	encouragement := EncouragementGeneric
	if in.Wins != "" {
		encouragement = fmt.Sprintf("This week's win: \"%s\" made the difference. Keep using that focus.", in.Wins)
	}

	advice := EnergyAdviceSustainable
	if in.Energy == reflection.EnergyDepleted {
		advice = EnergyAdviceDepleted
	}

	return Insight{
		Summary:         Summary(metrics),
		FocusAreas:      orDefault(focus, FocusDefault),
		Recommendations: orDefault(recs, RecommendDefault),
		Encouragement:   encouragement,
		EnergyAdvice:    advice,
		GeneratedAt:     now().UTC(),
		Engine:          EngineRuleBased,
	}
}

// Summary renders the one-line rule engine summary.
func Summary(metrics snapshot.Snapshot) string {
	return fmt.Sprintf("Completion rate %d%%. Completed S-priority tasks: %d.",
		metrics.CompletionRate, metrics.HighPriorityCompleted)
}

func orDefault(items []string, fallback string) []string {
	if len(items) == 0 {
		return []string{fallback}
	}
	return items
}

func remoteInsight(content string, now time.Time) Insight {
	return Insight{
		Summary:         remoteSummary,
		FocusAreas:      []string{content},
		Recommendations: orDefault(nil, RecommendDefault),
		GeneratedAt:     now.UTC(),
		Engine:          EngineRemote,
	}
}
