package insight

import (
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

// Engine names the generator that produced an insight.
type Engine string

const (
	EngineRuleBased Engine = "rule-based"
	EngineRemote    Engine = "remote"
)

// Insight is coaching output for one week.
type Insight struct {
	Summary         string    `json:"summary"`
	FocusAreas      []string  `json:"focusAreas"`
	Recommendations []string  `json:"recommendations"`
	Encouragement   string    `json:"encouragement"`
	EnergyAdvice    string    `json:"energyAdvice"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Engine          Engine    `json:"engine"`
}

// Result is the outcome of Generator.Generate.
//
// Fallback is true when the remote engine was tried and failed and the rule
// engine answered instead; Cause then holds the remote failure. When no
// credential is configured the rule engine answers directly and Fallback is
// false.
type Result struct {
	Insight  Insight
	Engine   Engine
	Fallback bool
	Cause    error
}

// PersonaTone is the slice of the profile shared with the remote model.
type PersonaTone struct {
	Persona string `json:"persona"`
	Tone    string `json:"tone"`
}

// Request is the bundle serialized into the remote user message.
type Request struct {
	Profile    PersonaTone       `json:"profile"`
	Metrics    snapshot.Snapshot `json:"metrics"`
	Reflection reflection.Input  `json:"reflection"`
	Tasks      []task.Task       `json:"tasks"`
}
