// Package reflection holds the weekly reflection a user writes and the
// profile that shapes how insights are phrased.
package reflection

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/go-playground/validator/v10"
)

// Mood is the self-reported mood for the week.
type Mood string

const (
	MoodLow     Mood = "low"
	MoodNeutral Mood = "neutral"
	MoodHigh    Mood = "high"
)

// EnergyState is the self-reported energy at the end of the week.
type EnergyState string

const (
	EnergyDepleted EnergyState = "depleted"
	EnergyBalanced EnergyState = "balanced"
	EnergyCharged  EnergyState = "charged"
)

// Input is the free-text weekly reflection. Every field is optional.
type Input struct {
	Wins          string      `json:"wins" validate:"max=2000"`
	Challenges    string      `json:"challenges" validate:"max=2000"`
	Learnings     string      `json:"learnings" validate:"max=2000"`
	Mood          Mood        `json:"mood,omitempty" validate:"omitempty,oneof=low neutral high"`
	Energy        EnergyState `json:"energy,omitempty" validate:"omitempty,oneof=depleted balanced charged"`
	FocusNextWeek string      `json:"focusNextWeek" validate:"max=2000"`
	Notes         string      `json:"notes" validate:"max=4000"`
}

// Profile configures insight generation for the single user.
type Profile struct {
	// Persona is the personality type the coach addresses, e.g. "INTJ".
	Persona string `json:"persona"`
	// Tone is the requested writing tone, e.g. "direct".
	Tone string `json:"tone"`
	// APIKey is the remote model credential. It is redacted whenever the
	// profile is marshaled; the store persists it separately.
	APIKey config.Secret `json:"openAIApiKey,omitempty"`
	// PreferredModel overrides the configured default model.
	PreferredModel string `json:"preferredModel,omitempty"`
	// AllowRuleFallback lets generation fall back to the rule engine when the
	// remote path is unavailable.
	AllowRuleFallback bool `json:"allowRuleFallback"`
	// LastUpdated is stamped on every update.
	LastUpdated time.Time `json:"lastUpdated"`
}

// DefaultProfile returns the profile used when nothing is stored.
func DefaultProfile(now time.Time) Profile {
	return Profile{
		Persona:           "INTJ",
		Tone:              "direct",
		AllowRuleFallback: true,
		LastUpdated:       now.UTC(),
	}
}

// Patch is a partial profile update. Nil fields are left unchanged. An
// empty APIKey clears the stored credential.
type Patch struct {
	Persona           *string `json:"persona,omitempty" validate:"omitempty,min=1,max=32"`
	Tone              *string `json:"tone,omitempty" validate:"omitempty,min=1,max=64"`
	APIKey            *string `json:"openAIApiKey,omitempty" validate:"omitempty,max=256"`
	PreferredModel    *string `json:"preferredModel,omitempty" validate:"omitempty,max=64"`
	AllowRuleFallback *bool   `json:"allowRuleFallback,omitempty"`
}

// Apply returns p with the non-nil fields of patch merged in.
func (p Profile) Apply(patch Patch) Profile {
	if patch.Persona != nil {
		p.Persona = *patch.Persona
	}
	if patch.Tone != nil {
		p.Tone = *patch.Tone
	}
	if patch.APIKey != nil {
		p.APIKey = config.Secret(*patch.APIKey)
	}
	if patch.PreferredModel != nil {
		p.PreferredModel = *patch.PreferredModel
	}
	if patch.AllowRuleFallback != nil {
		p.AllowRuleFallback = *patch.AllowRuleFallback
	}
	return p
}

// ErrInvalid wraps validation failures for reflections and patches.
var ErrInvalid = errors.New("invalid reflection data")

var validate = validator.New()

// Validate checks lengths and the mood and energy enumerations.
func (in Input) Validate() error {
	return check(in)
}

// Validate checks field lengths.
func (p Patch) Validate() error {
	return check(p)
}

func check(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrInvalid, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
