package guardrail

import (
	"fmt"
	"strconv"

	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

const (
	repJumpWarn    = 3
	repJumpExtreme = 5
	// volumeDropPct is the session-over-session volume loss that triggers a
	// regression warning.
	volumeDropPct = 20

	plateauSessions     = 3
	deloadDueWeeks      = 4
	deloadReminderWeeks = 8
)

// SetInput is everything CheckSet looks at. Last is nil when the exercise
// has no prior set, in which case the check is skipped.
type SetInput struct {
	Current              models.SetPerformance  `json:"current"`
	Last                 *models.SetPerformance `json:"last,omitempty"`
	Spec                 models.ExerciseSpec    `json:"spec"`
	RecentPlateauCount   int                    `json:"recent_plateau_count"`
	WeeksSinceLastDeload int                    `json:"weeks_since_last_deload"`
	WeightFourWeeksAgo   *float64               `json:"weight_four_weeks_ago,omitempty"`
}

// CheckSet validates a logged set against the previous one and the recent
// trend. The same input always yields the same Check.
func CheckSet(in SetInput, pol policy.Policy) Check {
	if in.Last == nil {
		return Aggregate(nil)
	}
	cur := normalizeSet(in.Current)
	last := normalizeSet(*in.Last)
	rule := pol.Rule(in.Spec.Equipment)

	var findings []Finding
	findings = append(findings, weightJump(cur, last, rule, in.Spec.Equipment)...)
	findings = append(findings, repJump(cur, last)...)
	findings = append(findings, regression(cur, last)...)
	if in.WeightFourWeeksAgo != nil {
		findings = append(findings, velocity(cur.Weight, policy.Weight(*in.WeightFourWeeksAgo), rule.MonthlyGain)...)
	}
	findings = append(findings, deloadNeed(in.RecentPlateauCount, in.WeeksSinceLastDeload)...)
	return Aggregate(findings)
}

func weightJump(cur, last models.SetPerformance, rule policy.EquipmentRule, eq models.Equipment) []Finding {
	jump := cur.Weight - last.Weight
	if jump <= 0 || rule.SafeJump <= 0 {
		return nil
	}
	switch {
	case jump > 2*rule.SafeJump:
		return []Finding{errorFinding(CodeWeightJumpExtreme, fmt.Sprintf(
			"weight jumped by %s since last session, more than twice the safe %s jump of %s; check the entry",
			num(jump), eq, num(rule.SafeJump)))}
	case jump > rule.SafeJump:
		return []Finding{warning(CodeWeightJump, fmt.Sprintf(
			"weight jumped by %s since last session, above the safe %s jump of %s",
			num(jump), eq, num(rule.SafeJump)))}
	}
	return nil
}

func repJump(cur, last models.SetPerformance) []Finding {
	jump := cur.Reps - last.Reps
	switch {
	case jump > repJumpExtreme:
		return []Finding{errorFinding(CodeRepJumpExtreme, fmt.Sprintf(
			"reps increased by %d since last session; this looks like a data entry mistake", jump))}
	case jump > repJumpWarn:
		return []Finding{warning(CodeRepJump, fmt.Sprintf(
			"reps increased by %d since last session", jump))}
	}
	return nil
}

func regression(cur, last models.SetPerformance) []Finding {
	var out []Finding
	if cur.Weight < last.Weight && cur.Reps < last.Reps {
		out = append(out, warning(CodeRegression, fmt.Sprintf(
			"both weight (%s → %s) and reps (%d → %d) dropped; possible under-recovery",
			num(last.Weight), num(cur.Weight), last.Reps, cur.Reps)))
	}
	if lv := last.Volume(); lv > 0 {
		drop := (lv - cur.Volume()) / lv * 100
		if drop > volumeDropPct {
			out = append(out, warning(CodeVolumeDrop, fmt.Sprintf(
				"set volume dropped %.0f%% versus last session", drop)))
		}
	}
	return out
}

func velocity(current, fourWeeksAgo float64, band policy.GainBand) []Finding {
	if fourWeeksAgo <= 0 {
		return nil
	}
	gain := current - fourWeeksAgo
	switch {
	case band.Extreme > 0 && gain > band.Extreme:
		return []Finding{warning(CodeVelocityExtreme, fmt.Sprintf(
			"gained %s in about four weeks, beyond the healthy %s-%s range; this pace is unsustainable",
			num(gain), num(band.Min), num(band.Max)))}
	case band.Max > 0 && gain > band.Max:
		return []Finding{info(CodeVelocityHigh, fmt.Sprintf(
			"gained %s in about four weeks, above the typical %s-%s range",
			num(gain), num(band.Min), num(band.Max)))}
	}
	return nil
}

func deloadNeed(plateaus, weeksSinceDeload int) []Finding {
	switch {
	case plateaus >= plateauSessions && weeksSinceDeload >= deloadDueWeeks:
		return []Finding{warning(CodeDeloadNeeded, fmt.Sprintf(
			"no progress for %d sessions and %d weeks since the last deload; consider a deload week",
			plateaus, weeksSinceDeload))}
	case weeksSinceDeload >= deloadReminderWeeks:
		return []Finding{info(CodeDeloadReminder, fmt.Sprintf(
			"%d weeks since the last deload", weeksSinceDeload))}
	}
	return nil
}

func normalizeSet(s models.SetPerformance) models.SetPerformance {
	s.Weight = policy.Weight(s.Weight)
	s.Reps = policy.Reps(s.Reps)
	return s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
