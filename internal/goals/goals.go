// Package goals tracks long-running platform goals (followers, revenue,
// contracts) and a short weekly history of their values.
package goals

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Value is a goal figure. Most goals are numeric; some, like an expertise
// milestone, are free text.
type Value struct {
	Number float64
	Text   string
	IsText bool
}

// Num returns a numeric value.
func Num(n float64) Value { return Value{Number: n} }

// Text returns a textual value.
func Text(s string) Value { return Value{Text: s, IsText: true} }

// Numeric returns the number and whether the value is numeric.
func (v Value) Numeric() (float64, bool) {
	return v.Number, !v.IsText
}

func (v Value) String() string {
	if v.IsText {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON emits a JSON number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("goal value must be a number or string: %w", err)
	}
	*v = Num(n)
	return nil
}

// Goal is a target and the current progress toward it.
type Goal struct {
	Target  Value  `json:"target"`
	Current Value  `json:"current"`
	Label   string `json:"label" validate:"required,max=64"`
	Unit    string `json:"unit,omitempty" validate:"max=16"`
}

// Progress returns current/target as a percentage capped at 100, or 0 for
// textual goals and zero targets.
func (g Goal) Progress() float64 {
	cur, ok1 := g.Current.Numeric()
	tgt, ok2 := g.Target.Numeric()
	if !ok1 || !ok2 || tgt == 0 {
		return 0
	}
	p := cur / tgt * 100
	if p > 100 {
		return 100
	}
	return p
}

// Goals maps a platform key to its goal.
type Goals map[string]Goal

// Clone returns a copy of g.
func (g Goals) Clone() Goals {
	out := make(Goals, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Snapshot is the goal state recorded at an update.
type Snapshot struct {
	Date       time.Time `json:"date"`
	WeekNumber int       `json:"weekNumber"`
	Year       int       `json:"year"`
	Goals      Goals     `json:"goals"`
}

// Initial returns the goals used before anything is stored.
func Initial() Goals {
	return Goals{
		"note":      {Target: Num(100), Current: Num(68), Label: "note followers", Unit: "people"},
		"standfm":   {Target: Num(100), Current: Num(9), Label: "standFM followers", Unit: "people"},
		"instagram": {Target: Num(300), Current: Num(288), Label: "Instagram followers", Unit: "people"},
		"youtube":   {Target: Num(200), Current: Num(105), Label: "YouTube subscribers", Unit: "people"},
		"expertise": {Target: Text("Establish an original method"), Current: Text("Theory complete"), Label: "Expertise"},
		"marketing": {Target: Num(3), Current: Num(1), Label: "New contracts per month", Unit: "contracts"},
		"business":  {Target: Num(500000), Current: Num(450000), Label: "Monthly revenue", Unit: "JPY"},
		"topform":   {Target: Num(100), Current: Num(85), Label: "TOPFORM completion", Unit: "%"},
	}
}

// ErrInvalidGoals wraps validation failures.
var ErrInvalidGoals = errors.New("invalid goals")

var validate = validator.New()

// Validate checks every goal's label and unit and rejects negative numbers.
func (g Goals) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("%w: no goals", ErrInvalidGoals)
	}
	for key, goal := range g {
		if key == "" {
			return fmt.Errorf("%w: empty platform key", ErrInvalidGoals)
		}
		if err := validate.Struct(goal); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidGoals, key, err)
		}
		for _, v := range []Value{goal.Target, goal.Current} {
			if n, ok := v.Numeric(); ok && n < 0 {
				return fmt.Errorf("%w: %s: negative value", ErrInvalidGoals, key)
			}
		}
	}
	return nil
}
