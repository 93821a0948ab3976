package guardrail

import (
	"fmt"
	"time"

	"github.com/claude/liftguard/internal/models"
)

// ScheduleRules are the calendar limits. They come from configuration and
// are passed into every call.
type ScheduleRules struct {
	WeekStart          time.Weekday
	MaxSessionsPerWeek int
	PhaseWeeks         int
	MegaCapWeeks       int
	MegaWarnWeeks      int
	DeloadWarnWeeks    int
	DeloadAdviseWeeks  int
}

// DefaultScheduleRules returns the standard calendar limits with weeks
// starting on Monday.
func DefaultScheduleRules() ScheduleRules {
	return ScheduleRules{
		WeekStart:          time.Monday,
		MaxSessionsPerWeek: 3,
		PhaseWeeks:         8,
		MegaCapWeeks:       12,
		MegaWarnWeeks:      10,
		DeloadWarnWeeks:    8,
		DeloadAdviseWeeks:  6,
	}
}

// MethodChange is a proposed training method for an exercise alongside the
// method and phase it was last logged under.
type MethodChange struct {
	Exercise   string                `json:"exercise"`
	Proposed   models.TrainingMethod `json:"proposed"`
	Prior      models.TrainingMethod `json:"prior,omitempty"`
	PriorPhase int                   `json:"prior_phase,omitempty"`
}

// ExerciseWeeks is a count of consecutive weeks for one exercise.
type ExerciseWeeks struct {
	Exercise string `json:"exercise"`
	Weeks    int    `json:"weeks"`
}

// ScheduleInput is everything CheckSchedule looks at. CurrentWeek is derived
// from ProgramStartDate when it is not positive.
type ScheduleInput struct {
	ProposedDate     time.Time       `json:"proposed_date"`
	ExistingSessions []time.Time     `json:"existing_sessions"`
	CurrentPhase     int             `json:"current_phase"`
	CurrentWeek      int             `json:"current_week"`
	ProgramStartDate time.Time       `json:"program_start_date"`
	Methods          []MethodChange  `json:"methods,omitempty"`
	MegaWeeks        []ExerciseWeeks `json:"mega_weeks,omitempty"`
	OverloadWeeks    int             `json:"overload_weeks"`
}

// CheckSchedule runs every calendar rule and collects all findings rather
// than stopping at the first failure. When both the frequency and the
// spacing rule suggest a date, the frequency date wins.
func CheckSchedule(in ScheduleInput, rules ScheduleRules) Check {
	var findings []Finding

	freq, freqNext := CheckFrequency(in.ProposedDate, in.ExistingSessions, rules)
	findings = append(findings, freq...)
	spacing, spacingNext := CheckSpacing(in.ProposedDate, in.ExistingSessions)
	findings = append(findings, spacing...)
	findings = append(findings, CheckMethodContinuity(in.CurrentPhase, in.Methods)...)
	findings = append(findings, CheckMegaDuration(in.MegaWeeks, rules)...)

	week := in.CurrentWeek
	if week <= 0 {
		week = WeekNumber(in.ProgramStartDate, in.ProposedDate)
	}
	findings = append(findings, PhaseNote(in.CurrentPhase, week, rules))
	findings = append(findings, DeloadRecommendation(in.OverloadWeeks, rules)...)

	c := Aggregate(findings)
	switch {
	case freqNext != nil:
		c.NextAvailableDate = freqNext
	case spacingNext != nil:
		c.NextAvailableDate = spacingNext
	}
	return c
}

// CheckFrequency errors when the calendar week containing date already
// holds the maximum number of sessions. The suggested date is the first day
// of the following week.
func CheckFrequency(date time.Time, sessions []time.Time, rules ScheduleRules) ([]Finding, *time.Time) {
	limit := rules.MaxSessionsPerWeek
	if limit <= 0 {
		return nil, nil
	}
	start := WeekStartOf(date, rules.WeekStart)
	end := start.AddDate(0, 0, 7)

	count := 0
	for _, s := range sessions {
		d := civil(s)
		if !d.Before(start) && d.Before(end) {
			count++
		}
	}
	if count < limit {
		return nil, nil
	}
	next := end
	return []Finding{errorFinding(CodeFrequency, fmt.Sprintf(
		"%d sessions already logged in the week of %s; the limit is %d per week",
		count, start.Format(time.DateOnly), limit))}, &next
}

// CheckSpacing errors when a session exists exactly one calendar day before
// or after date. The suggested date is two days after the latest such session.
func CheckSpacing(date time.Time, sessions []time.Time) ([]Finding, *time.Time) {
	d := civil(date)
	var conflict *time.Time
	for _, s := range sessions {
		sd := civil(s)
		if diff := DaysBetween(sd, d); diff == 1 || diff == -1 {
			if conflict == nil || sd.After(*conflict) {
				c := sd
				conflict = &c
			}
		}
	}
	if conflict == nil {
		return nil, nil
	}
	next := conflict.AddDate(0, 0, 2)
	return []Finding{errorFinding(CodeConsecutiveDays, fmt.Sprintf(
		"a session is already logged on %s; minimum recovery window violated",
		conflict.Format(time.DateOnly)))}, &next
}

// CheckMethodContinuity errors for every exercise whose proposed method
// differs from the method it was logged under earlier in the same phase.
func CheckMethodContinuity(phase int, changes []MethodChange) []Finding {
	var out []Finding
	for _, m := range changes {
		if m.Prior == "" || m.Proposed == "" || m.Prior == m.Proposed {
			continue
		}
		if m.PriorPhase != phase {
			continue
		}
		out = append(out, errorFinding(CodeMethodLocked, fmt.Sprintf(
			"%s is locked to %s for phase %d; switch methods when the phase advances",
			m.Exercise, m.Prior, phase)))
	}
	return out
}

// CheckMegaDuration errors when an exercise has run in MEGA mode for the cap
// and warns as it approaches it.
func CheckMegaDuration(weeks []ExerciseWeeks, rules ScheduleRules) []Finding {
	var out []Finding
	for _, w := range weeks {
		switch {
		case rules.MegaCapWeeks > 0 && w.Weeks >= rules.MegaCapWeeks:
			out = append(out, errorFinding(CodeMegaCap, fmt.Sprintf(
				"%s has run %d consecutive MEGA weeks; the cap is %d",
				w.Exercise, w.Weeks, rules.MegaCapWeeks)))
		case rules.MegaWarnWeeks > 0 && w.Weeks >= rules.MegaWarnWeeks:
			out = append(out, warning(CodeMegaApproaching, fmt.Sprintf(
				"%s has run %d consecutive MEGA weeks; plan the next phase before week %d",
				w.Exercise, w.Weeks, rules.MegaCapWeeks)))
		}
	}
	return out
}

// PhaseNote reports progress through the current phase. It never blocks.
func PhaseNote(phase, week int, rules ScheduleRules) Finding {
	total := rules.PhaseWeeks
	if total <= 0 {
		total = DefaultScheduleRules().PhaseWeeks
	}
	if week >= total {
		return info(CodePhaseRotate, fmt.Sprintf(
			"phase %d has run %d weeks; ready to rotate to the next phase", phase, week))
	}
	return info(CodePhaseProgress, fmt.Sprintf("%d of %d weeks completed", week, total))
}

// DeloadRecommendation warns after a long run of progressive overload and
// gives a softer advisory a little earlier.
func DeloadRecommendation(overloadWeeks int, rules ScheduleRules) []Finding {
	switch {
	case rules.DeloadWarnWeeks > 0 && overloadWeeks >= rules.DeloadWarnWeeks:
		return []Finding{warning(CodeDeloadRecommend, fmt.Sprintf(
			"%d weeks of continuous progressive overload; schedule a deload week", overloadWeeks))}
	case rules.DeloadAdviseWeeks > 0 && overloadWeeks >= rules.DeloadAdviseWeeks:
		return []Finding{info(CodeDeloadAdvisory, fmt.Sprintf(
			"%d weeks of continuous progressive overload; a deload is coming up", overloadWeeks))}
	}
	return nil
}

// WeekStartOf returns the first day of the calendar week containing t.
func WeekStartOf(t time.Time, weekStart time.Weekday) time.Time {
	d := civil(t)
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekNumber returns the 1-based program week that date falls in.
func WeekNumber(start, date time.Time) int {
	if start.IsZero() {
		return 1
	}
	days := DaysBetween(civil(start), civil(date))
	if days < 0 {
		return 1
	}
	return days/7 + 1
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(civil(b).Sub(civil(a)).Hours() / 24)
}

// civil drops the clock and zone, keeping the calendar date the caller saw.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
