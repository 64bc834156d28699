package goals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/storage"
)

// ErrRoadmapNotFound is returned when a phase or milestone ID is unknown.
var ErrRoadmapNotFound = errors.New("roadmap item not found")

// Milestone is one long-term goal inside a phase.
type Milestone struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Target      string `json:"target,omitempty"`
	Description string `json:"description"`
	Achieved    bool   `json:"isAchieved"`
}

// Phase groups milestones for a multi-year period. At most one phase is
// current.
type Phase struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Period      string      `json:"period"`
	Description string      `json:"description"`
	Current     bool        `json:"currentPhase"`
	Goals       []Milestone `json:"goals"`
}

// Progress returns the share of achieved milestones as a rounded
// percentage, 0 for a phase without milestones.
func (p Phase) Progress() int {
	if len(p.Goals) == 0 {
		return 0
	}
	achieved := 0
	for _, g := range p.Goals {
		if g.Achieved {
			achieved++
		}
	}
	return int(math.Round(float64(achieved) / float64(len(p.Goals)) * 100))
}

// Roadmap is the ordered list of phases.
type Roadmap struct {
	Phases      []Phase   `json:"phases"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Clone returns a deep copy of r.
func (r Roadmap) Clone() Roadmap {
	out := Roadmap{Phases: make([]Phase, len(r.Phases)), LastUpdated: r.LastUpdated}
	for i, p := range r.Phases {
		p.Goals = append([]Milestone(nil), p.Goals...)
		out.Phases[i] = p
	}
	return out
}

// CurrentPhase returns the phase marked current.
func (r Roadmap) CurrentPhase() (Phase, bool) {
	for _, p := range r.Phases {
		if p.Current {
			return p, true
		}
	}
	return Phase{}, false
}

// InitialRoadmap returns the three-phase plan used before anything is
// stored.
func InitialRoadmap(now time.Time) Roadmap {
	return Roadmap{
		LastUpdated: now.UTC(),
		Phases: []Phase{
			{
				ID:          "phase-1",
				Title:       "Phase 1: Foundation",
				Period:      "2025-2026",
				Description: "Establish the business with stable revenue and a proven method",
				Current:     true,
				Goals: []Milestone{
					{ID: "phase1-revenue", Title: "Reach JPY 500,000 monthly revenue", Target: "JPY 500,000/month", Description: "Stable monthly revenue as a financial base"},
					{ID: "phase1-method", Title: "Establish an original training method", Description: "A personal training method built on INTJ strengths"},
					{ID: "phase1-online", Title: "Launch online services", Description: "Deliver sessions online to remove geographic limits"},
					{ID: "phase1-acquisition", Title: "Two new clients per month", Target: "2 clients/month", Description: "A repeatable client acquisition system"},
				},
			},
			{
				ID:          "phase-2",
				Title:       "Phase 2: Online focus",
				Period:      "2027-2028",
				Description: "Grow the business around online services and scale up",
				Goals: []Milestone{
					{ID: "phase2-revenue", Title: "JPY 700,000-1,000,000 monthly revenue", Target: "JPY 700,000-1,000,000/month", Description: "Grow revenue with a larger business"},
					{ID: "phase2-partnership", Title: "Corporate partnership revenue", Description: "Stable income from corporate partners"},
					{ID: "phase2-geographic", Title: "Serve clients anywhere", Description: "Serve clients nationwide and abroad"},
					{ID: "phase2-community", Title: "Run a client community", Description: "A client community that lifts retention and the brand"},
				},
			},
			{
				ID:          "phase-3",
				Title:       "Phase 3: Integrated producer",
				Period:      "2029-2030",
				Description: "Lead the industry and train the next generation",
				Goals: []Milestone{
					{ID: "phase3-revenue", Title: "JPY 1,000,000+ monthly revenue", Target: "JPY 1,000,000+/month", Description: "Sustain top-tier revenue"},
					{ID: "phase3-publishing", Title: "Publish a book and speak", Description: "Turn the method into a book and talks"},
					{ID: "phase3-education", Title: "Train trainers", Description: "A program that passes the method to new trainers"},
					{ID: "phase3-recognition", Title: "Industry recognition", Description: "Recognised authority in personal training"},
				},
			},
		},
	}
}

// Roadmap returns the long-term roadmap.
func (t *Tracker) Roadmap() Roadmap {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roadmap.Clone()
}

// SetAchieved marks a milestone achieved or not and persists the roadmap.
func (t *Tracker) SetAchieved(ctx context.Context, phaseID, milestoneID string, achieved bool) (Roadmap, error) {
	return t.updateMilestone(ctx, phaseID, milestoneID, func(bool) bool { return achieved })
}

// ToggleAchieved flips a milestone's achieved flag and persists the roadmap.
func (t *Tracker) ToggleAchieved(ctx context.Context, phaseID, milestoneID string) (Roadmap, error) {
	return t.updateMilestone(ctx, phaseID, milestoneID, func(was bool) bool { return !was })
}

func (t *Tracker) updateMilestone(ctx context.Context, phaseID, milestoneID string, next func(bool) bool) (Roadmap, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.roadmap.Phases {
		p := &t.roadmap.Phases[i]
		if p.ID != phaseID {
			continue
		}
		for j := range p.Goals {
			if p.Goals[j].ID == milestoneID {
				p.Goals[j].Achieved = next(p.Goals[j].Achieved)
				t.roadmap.LastUpdated = t.now().UTC()
				t.save(ctx, storage.KeyRoadmap, t.roadmap)
				return t.roadmap.Clone(), nil
			}
		}
		return Roadmap{}, fmt.Errorf("%w: goal %q in phase %q", ErrRoadmapNotFound, milestoneID, phaseID)
	}
	return Roadmap{}, fmt.Errorf("%w: phase %q", ErrRoadmapNotFound, phaseID)
}

// SetCurrentPhase makes phaseID the only current phase.
func (t *Tracker) SetCurrentPhase(ctx context.Context, phaseID string) (Roadmap, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	for _, p := range t.roadmap.Phases {
		if p.ID == phaseID {
			found = true
			break
		}
	}
	if !found {
		return Roadmap{}, fmt.Errorf("%w: phase %q", ErrRoadmapNotFound, phaseID)
	}
	for i := range t.roadmap.Phases {
		t.roadmap.Phases[i].Current = t.roadmap.Phases[i].ID == phaseID
	}
	t.roadmap.LastUpdated = t.now().UTC()
	t.save(ctx, storage.KeyRoadmap, t.roadmap)
	return t.roadmap.Clone(), nil
}
