package program

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

// ErrInvalidMode is returned by SetMode for an unknown training mode.
var ErrInvalidMode = errors.New("invalid training mode")

// Initial returns the state of a program started today.
func Initial(today time.Time) models.ProgramState {
	return models.ProgramState{Phase: 1, Week: 1, StartDate: day(today), Mode: models.ModeStandard}
}

// AdvancePhase moves to the next phase (1→2→3→1) and restarts the week
// count from today. The rotation gate is advisory: advancing early is
// allowed.
func AdvancePhase(s models.ProgramState, today time.Time) models.ProgramState {
	s.Phase = NormalizePhase(s.Phase)%PhaseCount + 1
	s.Week = 1
	s.StartDate = day(today)
	if s.Mode == "" {
		s.Mode = models.ModeStandard
	}
	return s
}

// WeekOf returns the 1-based program week that date falls in.
func WeekOf(start, date time.Time) int {
	return guardrail.WeekNumber(start, date)
}

// CurrentWeek returns the program week as of today. A state without a
// start date keeps its stored week.
func CurrentWeek(s models.ProgramState, today time.Time) int {
	if s.StartDate.IsZero() {
		return max(s.Week, 1)
	}
	return WeekOf(s.StartDate, today)
}

// Refresh returns s with Week recomputed for today.
func Refresh(s models.ProgramState, today time.Time) models.ProgramState {
	s.Phase = NormalizePhase(s.Phase)
	s.Week = CurrentWeek(s, today)
	return s
}

// ReadyToRotate reports whether the phase has run its full length.
func ReadyToRotate(s models.ProgramState, rules guardrail.ScheduleRules) bool {
	weeks := rules.PhaseWeeks
	if weeks <= 0 {
		weeks = guardrail.DefaultScheduleRules().PhaseWeeks
	}
	return s.Week >= weeks
}

// SetMode switches the training mode and specialization. An empty mode
// keeps the current one.
func SetMode(s models.ProgramState, mode models.TrainingMode, specialization string) (models.ProgramState, error) {
	switch mode {
	case "":
	case models.ModeStandard, models.ModeMega:
		s.Mode = mode
	default:
		return s, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s.Specialization = strings.TrimSpace(specialization)
	return s, nil
}

// StartDeload activates a deload at pct, clamped to 0..100.
func StartDeload(d models.DeloadState, pct float64, today time.Time) models.DeloadState {
	t := day(today)
	d.Active = true
	d.ReductionPct = policy.Percent(pct)
	d.StartedAt = &t
	return d
}

// EndDeload deactivates the deload and records today as its completion.
func EndDeload(d models.DeloadState, today time.Time) models.DeloadState {
	if !d.Active {
		return d
	}
	t := day(today)
	d.Active = false
	d.LastCompletedAt = &t
	return d
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
