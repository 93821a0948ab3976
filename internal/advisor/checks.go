package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/history"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/program"
)

// SetRequest is a set, or the sets of one exercise, about to be logged.
type SetRequest struct {
	Exercise string                  `json:"exercise"`
	Date     time.Time               `json:"date"`
	Sets     []models.SetPerformance `json:"sets"`
}

// AnchorSet returns the first working set of sets, or nil.
func AnchorSet(sets []models.SetPerformance) *models.SetPerformance {
	var anchor *models.SetPerformance
	for i := range sets {
		s := sets[i]
		if s.IsWarmup {
			continue
		}
		if anchor == nil || s.SetNumber < anchor.SetNumber {
			anchor = &s
		}
	}
	return anchor
}

// CheckSet runs the set guardrails on the anchor set only; later sets of a
// ladder are expected to drop and are not compared.
func (a *Advisor) CheckSet(ctx context.Context, userID int, req SetRequest) (guardrail.Check, error) {
	spec, err := a.catalog.Lookup(req.Exercise)
	if err != nil {
		return guardrail.Check{}, err
	}
	anchor := AnchorSet(req.Sets)
	if anchor == nil {
		return guardrail.Aggregate(nil), nil
	}
	date := a.dateOrToday(req.Date)

	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return guardrail.Check{}, err
	}
	anchors, err := a.anchors(ctx, spec.Name, date, userID, &ds)
	if err != nil {
		return guardrail.Check{}, err
	}

	in := guardrail.SetInput{
		Current:              *anchor,
		Last:                 history.Last(anchors),
		Spec:                 spec,
		RecentPlateauCount:   history.PlateauCount(anchors),
		WeeksSinceLastDeload: history.WeeksSince(ds.LastCompletedAt, date, history.Dates(anchors)),
		WeightFourWeeksAgo:   history.WeightAround(anchors, date.AddDate(0, 0, -velocityDays), velocityToleranceDays),
	}
	return guardrail.CheckSet(in, a.cfg.Policy), nil
}

// ExerciseMethod is an exercise planned for a session and the method it
// will be trained with. An empty method uses the catalog's.
type ExerciseMethod struct {
	Exercise string                `json:"exercise"`
	Method   models.TrainingMethod `json:"method,omitempty"`
}

// ScheduleRequest is a proposed workout.
type ScheduleRequest struct {
	Date time.Time `json:"date"`
	// Slot resolves the exercise list when Exercises is empty.
	Slot      int              `json:"slot,omitempty"`
	Exercises []ExerciseMethod `json:"exercises,omitempty"`
}

// CheckSchedule runs the calendar guardrails for a proposed workout.
func (a *Advisor) CheckSchedule(ctx context.Context, userID int, req ScheduleRequest) (guardrail.Check, error) {
	date := a.dateOrToday(req.Date)
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return guardrail.Check{}, err
	}
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return guardrail.Check{}, err
	}

	sessions, err := a.store.SessionDates(ctx, date.AddDate(0, 0, -7*historyWeeks), date.AddDate(0, 0, 8), userID)
	if err != nil {
		return guardrail.Check{}, fmt.Errorf("loading sessions: %w", err)
	}
	var nearby, past []time.Time
	for _, s := range sessions {
		if d := guardrail.DaysBetween(s, date); d <= 7 && d >= -7 {
			nearby = append(nearby, s)
		}
		if s.Before(date) {
			past = append(past, s)
		}
	}

	planned := req.Exercises
	if len(planned) == 0 && req.Slot > 0 {
		for _, name := range program.ResolveState(ps, req.Slot, a.catalog).Exercises {
			planned = append(planned, ExerciseMethod{Exercise: name})
		}
	}

	in := guardrail.ScheduleInput{
		ProposedDate:     date,
		ExistingSessions: nearby,
		CurrentPhase:     program.NormalizePhase(ps.Phase),
		CurrentWeek:      program.CurrentWeek(ps, date),
		ProgramStartDate: ps.StartDate,
	}
	if !ds.Active {
		in.OverloadWeeks = history.OverloadWeeks(past, ds.LastCompletedAt, date, a.cfg.Rules.WeekStart)
	}

	for _, p := range planned {
		spec, err := a.catalog.Lookup(p.Exercise)
		if err != nil {
			return guardrail.Check{}, err
		}
		method := p.Method
		if method == "" {
			method = spec.Method
		}
		anchors, err := a.anchors(ctx, spec.Name, date, userID, nil)
		if err != nil {
			return guardrail.Check{}, err
		}
		change := guardrail.MethodChange{Exercise: spec.Name, Proposed: method}
		if prior, phase, ok := history.PriorMethod(anchors, ps.StartDate); ok {
			change.Prior, change.PriorPhase = prior, phase
		}
		in.Methods = append(in.Methods, change)

		if ps.Mode == models.ModeMega {
			in.MegaWeeks = append(in.MegaWeeks, guardrail.ExerciseWeeks{
				Exercise: spec.Name,
				Weeks:    history.ConsecutiveModeWeeks(anchors, models.ModeMega, date, a.cfg.Rules.WeekStart),
			})
		}
	}
	return guardrail.CheckSchedule(in, a.cfg.Rules), nil
}

func (a *Advisor) dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		return a.today()
	}
	return day(t)
}
