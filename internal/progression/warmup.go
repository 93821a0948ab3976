package progression

import "github.com/claude/liftguard/internal/policy"

// WarmupSet is one step of a warmup ramp.
type WarmupSet struct {
	Set     int     `json:"set"`
	Percent float64 `json:"percent"`
	Weight  float64 `json:"weight"`
	Reps    int     `json:"reps"`
}

var warmupSteps = []struct {
	percent float64
	reps    int
}{
	{60, 5},
	{75, 3},
	{90, 1},
}

// WarmupRamp returns three warmup sets at 60, 75 and 90 percent of the
// working weight with descending reps. It returns nil when workingWeight is
// not positive so the caller can prompt for a working weight first.
func WarmupRamp(workingWeight, increment float64) []WarmupSet {
	w := policy.Weight(workingWeight)
	if w <= 0 {
		return nil
	}
	ramp := make([]WarmupSet, 0, len(warmupSteps))
	for i, s := range warmupSteps {
		ramp = append(ramp, WarmupSet{
			Set:     i + 1,
			Percent: s.percent,
			Weight:  policy.RoundToIncrement(w*s.percent/100, increment),
			Reps:    s.reps,
		})
	}
	return ramp
}
