package progression

import (
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

// DeloadWeight scales weight down by reductionPct percent and rounds to the
// increment. Only load drops during a deload; rep targets are untouched.
func DeloadWeight(weight, reductionPct, increment float64) float64 {
	w := policy.Weight(weight)
	pct := policy.Percent(reductionPct)
	return policy.RoundToIncrement(w*(1-pct/100), increment)
}

// ApplyDeload returns t with its weight deloaded when the deload is active.
func ApplyDeload(t Target, d models.DeloadState, increment float64) Target {
	if !d.Active {
		return t
	}
	t.Weight = DeloadWeight(t.Weight, d.ReductionPct, increment)
	return t
}

// ApplyDeloadLadder deloads every set of a ladder against its own undeloaded
// weight, which keeps the ladder non-increasing.
func ApplyDeloadLadder(ladder []Target, d models.DeloadState, increment float64) []Target {
	if !d.Active || len(ladder) == 0 {
		return ladder
	}
	out := make([]Target, len(ladder))
	for i, t := range ladder {
		out[i] = ApplyDeload(t, d, increment)
	}
	return out
}

// ApplyDeloadRamp deloads each warmup weight.
func ApplyDeloadRamp(ramp []WarmupSet, d models.DeloadState, increment float64) []WarmupSet {
	if !d.Active || len(ramp) == 0 {
		return ramp
	}
	out := make([]WarmupSet, len(ramp))
	for i, s := range ramp {
		s.Weight = DeloadWeight(s.Weight, d.ReductionPct, increment)
		out[i] = s
	}
	return out
}
