// Package progression computes suggested numbers for the next session:
// double-progression targets, reverse-pyramid ladders, warmup ramps and
// deload-adjusted weights. Everything here is a pure function of its
// arguments; rounding always goes through the shared policy package.
package progression

import (
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

// LadderDrop is the fraction removed from the previous set's weight for each
// later set of a reverse-pyramid ladder.
const LadderDrop = 0.10

// DefaultLadderSets is the number of sets in a ladder when the exercise does
// not configure one rep range per set.
const DefaultLadderSets = 3

// Target is a suggested weight and rep count for one set.
type Target struct {
	Set      int             `json:"set"`
	Weight   float64         `json:"weight"`
	Reps     int             `json:"reps"`
	RepRange models.RepRange `json:"rep_range"`
}

// NextDoubleProgressionTarget applies double progression: below the top of
// the range add a rep at the same weight; at or above it add one increment
// and drop back to the range floor. The returned reps always lie in
// [repMin, repMax].
func NextDoubleProgressionTarget(lastWeight float64, lastReps, repMin, repMax int, increment float64) Target {
	w := policy.Weight(lastWeight)
	r := policy.Reps(lastReps)
	rng := normalizeRange(models.RepRange{Min: repMin, Max: repMax})
	inc := policy.Weight(increment)

	t := Target{Set: 1, Weight: w, RepRange: rng}
	switch {
	case r == 0:
		// nothing logged yet
		t.Reps = rng.Min
	case r >= rng.Max:
		t.Weight = policy.RoundToIncrement(w+inc, 0)
		t.Reps = rng.Min
	default:
		t.Reps = max(r+1, rng.Min)
	}
	return t
}

// NextTarget returns the anchor-set target for spec given the last logged
// anchor set. A nil last set yields the range floor with no weight, which
// callers present as "enter a starting weight".
func NextTarget(spec models.ExerciseSpec, last *models.SetPerformance, pol policy.Policy) Target {
	rng := normalizeRange(spec.AnchorRange())
	if last == nil {
		return Target{Set: 1, Reps: rng.Min, RepRange: rng}
	}
	return NextDoubleProgressionTarget(last.Weight, last.Reps, rng.Min, rng.Max, pol.Increment(spec))
}

// NextRPTSet derives set setIndex (1-based after the anchor, so 1 is the
// second set) from the previous set's weight. The weight drops by LadderDrop
// and is rounded to the increment but never exceeds the previous weight.
func NextRPTSet(previousWeight float64, anchorReps, setIndex int, anchorRange models.RepRange, increment float64) Target {
	prev := policy.Weight(previousWeight)
	if setIndex < 1 {
		setIndex = 1
	}
	rng := ladderRange(normalizeRange(anchorRange), setIndex)
	return Target{
		Set:      setIndex + 1,
		Weight:   dropWeight(prev, increment),
		Reps:     ladderReps(policy.Reps(anchorReps), setIndex, rng),
		RepRange: rng,
	}
}

// RPTLadder returns one target per set after the anchor. Later set rep
// ranges come from the spec when it configures them per position and are
// widened from the anchor range otherwise.
func RPTLadder(spec models.ExerciseSpec, anchorWeight float64, anchorReps int, pol policy.Policy) []Target {
	sets := DefaultLadderSets
	if len(spec.SetRepRanges) > 1 {
		sets = len(spec.SetRepRanges)
	}
	inc := pol.Increment(spec)
	anchor := normalizeRange(spec.AnchorRange())
	reps := policy.Reps(anchorReps)

	ladder := make([]Target, 0, sets-1)
	prev := policy.Weight(anchorWeight)
	for i := 1; i < sets; i++ {
		t := NextRPTSet(prev, reps, i, anchor, inc)
		if i < len(spec.SetRepRanges) {
			t.RepRange = normalizeRange(spec.SetRepRanges[i])
			t.Reps = clampReps(reps+2*i, t.RepRange)
		}
		ladder = append(ladder, t)
		prev = t.Weight
	}
	return ladder
}

func dropWeight(prev, increment float64) float64 {
	w := policy.RoundToIncrement(prev*(1-LadderDrop), increment)
	if w > prev {
		w = policy.FloorToIncrement(prev*(1-LadderDrop), increment)
	}
	return min(w, prev)
}

// ladderRange widens the anchor range for later sets: 4-5 becomes 6-7 and
// then 8-10.
func ladderRange(anchor models.RepRange, setIndex int) models.RepRange {
	return models.RepRange{
		Min: anchor.Min + 2*setIndex,
		Max: anchor.Max + 2*setIndex + (setIndex - 1),
	}
}

func ladderReps(anchorReps, setIndex int, rng models.RepRange) int {
	if anchorReps == 0 {
		return rng.Min
	}
	return clampReps(anchorReps+2*setIndex, rng)
}

func clampReps(r int, rng models.RepRange) int {
	return min(max(r, rng.Min), rng.Max)
}

func normalizeRange(r models.RepRange) models.RepRange {
	if r.Min < 1 {
		r.Min = 1
	}
	if r.Max < r.Min {
		r.Max = r.Min
	}
	return r
}
