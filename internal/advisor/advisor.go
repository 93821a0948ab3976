// Package advisor is the layer the API and agent surfaces call. It fetches
// history and program state from a Store, derives the engine inputs and
// threads the deload state through every suggested number before it is
// returned.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/history"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/program"
	"github.com/claude/liftguard/internal/progression"
)

const (
	// historyWeeks bounds how far back logs are read for one check.
	historyWeeks = 52
	// velocityDays and velocityToleranceDays locate the "about four weeks
	// ago" sample for the velocity rule.
	velocityDays          = 28
	velocityToleranceDays = 7
)

// Store is the persistence collaborator. Exercise logs come back most
// recent first. Missing program or deload state is models.ErrNotFound.
type Store interface {
	ExerciseLogs(ctx context.Context, exercise string, since time.Time, userID int) ([]models.ExerciseLog, error)
	SessionDates(ctx context.Context, start, end time.Time, userID int) ([]time.Time, error)
	InsertSession(ctx context.Context, s models.WorkoutSession, logs []models.ExerciseLog) error
	GetProgramState(ctx context.Context, userID int) (models.ProgramState, error)
	SaveProgramState(ctx context.Context, userID int, s models.ProgramState) error
	GetDeloadState(ctx context.Context, userID int) (models.DeloadState, error)
	SaveDeloadState(ctx context.Context, userID int, d models.DeloadState) error
}

// Catalog is the read-only exercise content table.
type Catalog interface {
	program.Lists
	Lookup(name string) (models.ExerciseSpec, error)
	Indicators() []models.ExerciseSpec
}

// Advisor combines the store, the catalog and the engine rules.
type Advisor struct {
	store   Store
	catalog Catalog
	cfg     Config
	log     *slog.Logger
}

// New creates an Advisor. Zero fields in cfg take their defaults.
func New(store Store, catalog Catalog, cfg Config, log *slog.Logger) *Advisor {
	return &Advisor{store: store, catalog: catalog, cfg: cfg.withDefaults(), log: log}
}

func (a *Advisor) today() time.Time {
	return day(a.cfg.Now())
}

// ProgramView is the program and deload state as of today.
type ProgramView struct {
	Program       models.ProgramState `json:"program"`
	Deload        models.DeloadState  `json:"deload"`
	ReadyToRotate bool                `json:"ready_to_rotate"`
	PhaseNote     guardrail.Finding   `json:"phase_note"`
}

// Program returns the current program view.
func (a *Advisor) Program(ctx context.Context, userID int) (*ProgramView, error) {
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.view(ps, ds), nil
}

func (a *Advisor) view(ps models.ProgramState, ds models.DeloadState) *ProgramView {
	ps = program.Refresh(ps, a.today())
	return &ProgramView{
		Program:       ps,
		Deload:        ds,
		ReadyToRotate: program.ReadyToRotate(ps, a.cfg.Rules),
		PhaseNote:     guardrail.PhaseNote(ps.Phase, ps.Week, a.cfg.Rules),
	}
}

// programState loads the stored state, starting a fresh program when there
// is none yet.
func (a *Advisor) programState(ctx context.Context, userID int) (models.ProgramState, error) {
	ps, err := a.store.GetProgramState(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return program.Initial(a.today()), nil
	}
	if err != nil {
		return ps, fmt.Errorf("loading program state: %w", err)
	}
	return ps, nil
}

func (a *Advisor) deloadState(ctx context.Context, userID int) (models.DeloadState, error) {
	ds, err := a.store.GetDeloadState(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.DeloadState{}, nil
	}
	if err != nil {
		return ds, fmt.Errorf("loading deload state: %w", err)
	}
	return ds, nil
}

// anchors fetches the exercise history up to (but excluding) before. When ds
// is set, sets logged inside its deload window are left out.
func (a *Advisor) anchors(ctx context.Context, exercise string, before time.Time, userID int, ds *models.DeloadState) ([]history.Anchor, error) {
	logs, err := a.store.ExerciseLogs(ctx, exercise, before.AddDate(0, 0, -7*historyWeeks), userID)
	if err != nil {
		return nil, fmt.Errorf("loading %s history: %w", exercise, err)
	}
	var prior []models.ExerciseLog
	for _, l := range logs {
		if day(l.Date).Before(before) {
			prior = append(prior, l)
		}
	}
	if ds != nil {
		prior = history.OutsideDeload(prior, *ds)
	}
	return history.Anchors(prior), nil
}

// TargetView is the suggestion for an exercise's next session.
type TargetView struct {
	Exercise models.ExerciseSpec    `json:"exercise"`
	Last     *models.SetPerformance `json:"last,omitempty"`
	Target   progression.Target     `json:"target"`
	Ladder   []progression.Target   `json:"ladder,omitempty"`
	Deloaded bool                   `json:"deloaded"`
}

// NextTarget returns the anchor-set target, and the ladder for ladder
// methods, with the active deload applied.
func (a *Advisor) NextTarget(ctx context.Context, userID int, exercise string) (*TargetView, error) {
	spec, err := a.catalog.Lookup(exercise)
	if err != nil {
		return nil, err
	}
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	anchors, err := a.anchors(ctx, spec.Name, a.today().AddDate(0, 0, 1), userID, &ds)
	if err != nil {
		return nil, err
	}
	return a.target(spec, history.Last(anchors), ds), nil
}

func (a *Advisor) target(spec models.ExerciseSpec, last *models.SetPerformance, ds models.DeloadState) *TargetView {
	inc := a.cfg.Policy.Increment(spec)
	t := progression.NextTarget(spec, last, a.cfg.Policy)
	v := &TargetView{Exercise: spec, Last: last, Deloaded: ds.Active}
	if spec.Method.IsLadder() && t.Weight > 0 {
		v.Ladder = progression.ApplyDeloadLadder(progression.RPTLadder(spec, t.Weight, t.Reps, a.cfg.Policy), ds, inc)
	}
	v.Target = progression.ApplyDeload(t, ds, inc)
	return v
}

// WarmupView is a warmup ramp for a working weight.
type WarmupView struct {
	Exercise string                  `json:"exercise"`
	Working  float64                 `json:"working_weight"`
	Sets     []progression.WarmupSet `json:"sets"`
	Deloaded bool                    `json:"deloaded"`
}

// Warmup returns the deload-adjusted ramp for working. A non-positive
// working weight falls back to the next target's undeloaded weight. The
// ramp is empty when neither is known.
func (a *Advisor) Warmup(ctx context.Context, userID int, exercise string, working float64) (*WarmupView, error) {
	spec, err := a.catalog.Lookup(exercise)
	if err != nil {
		return nil, err
	}
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if working <= 0 {
		anchors, err := a.anchors(ctx, spec.Name, a.today().AddDate(0, 0, 1), userID, &ds)
		if err != nil {
			return nil, err
		}
		working = progression.NextTarget(spec, history.Last(anchors), a.cfg.Policy).Weight
	}
	inc := a.cfg.Policy.Increment(spec)
	sets := progression.ApplyDeloadRamp(progression.WarmupRamp(working, inc), ds, inc)
	if sets == nil {
		sets = []progression.WarmupSet{}
	}
	return &WarmupView{Exercise: spec.Name, Working: working, Sets: sets, Deloaded: ds.Active}, nil
}

// Ladder returns the ladder that follows an anchor set the lifter actually
// performed. No deload is applied: the anchor already reflects it.
func (a *Advisor) Ladder(exercise string, weight float64, reps int) ([]progression.Target, error) {
	spec, err := a.catalog.Lookup(exercise)
	if err != nil {
		return nil, err
	}
	return progression.RPTLadder(spec, weight, reps, a.cfg.Policy), nil
}

// DeloadWeight scales weight by pct using the exercise's increment, or the
// barbell increment when exercise is empty.
func (a *Advisor) DeloadWeight(exercise string, weight, pct float64) (float64, error) {
	inc := a.cfg.Policy.Rule(models.EquipmentBarbell).Increment
	if exercise != "" {
		spec, err := a.catalog.Lookup(exercise)
		if err != nil {
			return 0, err
		}
		inc = a.cfg.Policy.Increment(spec)
	}
	return progression.DeloadWeight(weight, pct, inc), nil
}

// DefaultDeloadPct is the configured reduction used when a caller gives none.
func (a *Advisor) DefaultDeloadPct() float64 {
	return a.cfg.DeloadPct
}

// ResolveExercises returns the exercise list for a workout slot under the
// current program state.
func (a *Advisor) ResolveExercises(ctx context.Context, userID, slot int) (program.Selection, error) {
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return program.Selection{}, err
	}
	return program.ResolveState(ps, slot, a.catalog), nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
