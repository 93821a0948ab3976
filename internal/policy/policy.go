// Package policy holds the equipment-specific numbers shared by every
// calculator and validator: weight increments, safe jump thresholds and the
// healthy monthly gain band. A Policy is built once from configuration and
// passed by value into each engine call; nothing here is global or mutable.
package policy

import (
	"math"

	"github.com/claude/liftguard/internal/models"
)

// GainBand is the healthy range of weight added over roughly four weeks.
type GainBand struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Extreme float64 `json:"extreme" yaml:"extreme"`
}

// EquipmentRule holds the numbers for one equipment class.
type EquipmentRule struct {
	Increment   float64  `json:"increment" yaml:"increment"`
	SafeJump    float64  `json:"safe_jump" yaml:"safe_jump"`
	MonthlyGain GainBand `json:"monthly_gain" yaml:"monthly_gain"`
}

// Policy maps equipment classes to their rules.
type Policy struct {
	Rules map[models.Equipment]EquipmentRule
}

// Default returns the built-in rules. Dumbbell numbers are per hand.
func Default() Policy {
	return Policy{Rules: map[models.Equipment]EquipmentRule{
		models.EquipmentBarbell: {
			Increment:   5,
			SafeJump:    10,
			MonthlyGain: GainBand{Min: 5, Max: 20, Extreme: 30},
		},
		models.EquipmentDumbbell: {
			Increment:   5,
			SafeJump:    10,
			MonthlyGain: GainBand{Min: 2.5, Max: 10, Extreme: 20},
		},
		models.EquipmentBodyweight: {
			Increment:   2.5,
			SafeJump:    5,
			MonthlyGain: GainBand{Min: 2.5, Max: 10, Extreme: 15},
		},
		models.EquipmentCable: {
			Increment:   5,
			SafeJump:    15,
			MonthlyGain: GainBand{Min: 5, Max: 20, Extreme: 30},
		},
	}}
}

// With returns a copy of p with the rule for eq replaced. Zero fields in r
// keep the existing value.
func (p Policy) With(eq models.Equipment, r EquipmentRule) Policy {
	rules := make(map[models.Equipment]EquipmentRule, len(p.Rules)+1)
	for k, v := range p.Rules {
		rules[k] = v
	}
	cur := rules[eq]
	if r.Increment > 0 {
		cur.Increment = r.Increment
	}
	if r.SafeJump > 0 {
		cur.SafeJump = r.SafeJump
	}
	if r.MonthlyGain.Min > 0 {
		cur.MonthlyGain.Min = r.MonthlyGain.Min
	}
	if r.MonthlyGain.Max > 0 {
		cur.MonthlyGain.Max = r.MonthlyGain.Max
	}
	if r.MonthlyGain.Extreme > 0 {
		cur.MonthlyGain.Extreme = r.MonthlyGain.Extreme
	}
	rules[eq] = cur
	return Policy{Rules: rules}
}

// Rule returns the rule for eq. Unknown classes fall back to barbell, and a
// policy without rules falls back to Default.
func (p Policy) Rule(eq models.Equipment) EquipmentRule {
	if r, ok := p.Rules[eq]; ok {
		return r
	}
	if r, ok := p.Rules[models.EquipmentBarbell]; ok {
		return r
	}
	return Default().Rules[models.EquipmentBarbell]
}

// Increment returns the weight step for an exercise: the spec's own
// increment when set, otherwise its equipment default.
func (p Policy) Increment(spec models.ExerciseSpec) float64 {
	if spec.Increment > 0 {
		return spec.Increment
	}
	return p.Rule(spec.Equipment).Increment
}

// Round rounds weight to the nearest increment of eq.
func (p Policy) Round(weight float64, eq models.Equipment) float64 {
	return RoundToIncrement(weight, p.Rule(eq).Increment)
}

// RoundToIncrement rounds weight to the nearest multiple of increment.
// Non-positive or non-finite weights yield 0; a non-positive increment
// leaves the weight at two decimals.
func RoundToIncrement(weight, increment float64) float64 {
	weight = Weight(weight)
	if weight == 0 {
		return 0
	}
	if increment <= 0 || math.IsNaN(increment) || math.IsInf(increment, 0) {
		return cents(weight)
	}
	return cents(math.Round(weight/increment) * increment)
}

// FloorToIncrement rounds weight down to a multiple of increment.
func FloorToIncrement(weight, increment float64) float64 {
	weight = cents(Weight(weight))
	if weight == 0 || increment <= 0 {
		return weight
	}
	// Nudge before flooring so 179.99999 on a 5 step stays 180.
	return cents(math.Floor(weight/increment+1e-9) * increment)
}

// cents trims float noise such as 180.00000000003.
func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
