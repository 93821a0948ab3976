package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
	"github.com/claude/liftguard/internal/program"
)

// AdvancePhase rotates to the next phase. Advancing before the phase has
// run its full length is allowed and logged.
func (a *Advisor) AdvancePhase(ctx context.Context, userID int) (*ProgramView, error) {
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ps = program.Refresh(ps, a.today())
	if !program.ReadyToRotate(ps, a.cfg.Rules) {
		a.log.Info("advancing phase early", "user_id", userID, "phase", ps.Phase, "week", ps.Week)
	}
	next := program.AdvancePhase(ps, a.today())
	if err := a.store.SaveProgramState(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("saving program state: %w", err)
	}
	a.log.Info("phase advanced", "user_id", userID, "from", ps.Phase, "to", next.Phase)
	return a.withDeload(ctx, userID, next)
}

// SetMode changes the training mode and specialization.
func (a *Advisor) SetMode(ctx context.Context, userID int, mode models.TrainingMode, specialization string) (*ProgramView, error) {
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := program.SetMode(ps, mode, specialization)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveProgramState(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("saving program state: %w", err)
	}
	a.log.Info("training mode set", "user_id", userID, "mode", next.Mode, "specialization", next.Specialization)
	return a.withDeload(ctx, userID, next)
}

// StartDeload activates a deload. A non-positive pct uses the configured
// default.
func (a *Advisor) StartDeload(ctx context.Context, userID int, pct float64) (*ProgramView, error) {
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if policy.Percent(pct) == 0 {
		pct = a.cfg.DeloadPct
	}
	ds = program.StartDeload(ds, pct, a.today())
	if err := a.store.SaveDeloadState(ctx, userID, ds); err != nil {
		return nil, fmt.Errorf("saving deload state: %w", err)
	}
	a.log.Info("deload started", "user_id", userID, "reduction_pct", ds.ReductionPct)
	return a.withProgram(ctx, userID, ds)
}

// EndDeload deactivates the deload.
func (a *Advisor) EndDeload(ctx context.Context, userID int) (*ProgramView, error) {
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ds = program.EndDeload(ds, a.today())
	if err := a.store.SaveDeloadState(ctx, userID, ds); err != nil {
		return nil, fmt.Errorf("saving deload state: %w", err)
	}
	a.log.Info("deload ended", "user_id", userID)
	return a.withProgram(ctx, userID, ds)
}

func (a *Advisor) withDeload(ctx context.Context, userID int, ps models.ProgramState) (*ProgramView, error) {
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.view(ps, ds), nil
}

func (a *Advisor) withProgram(ctx context.Context, userID int, ds models.DeloadState) (*ProgramView, error) {
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.view(ps, ds), nil
}

// ExerciseEntry is one exercise of a session being logged.
type ExerciseEntry struct {
	Exercise string                  `json:"exercise"`
	Method   models.TrainingMethod   `json:"method,omitempty"`
	Sets     []models.SetPerformance `json:"sets"`
}

// SessionRequest is a completed workout to store.
type SessionRequest struct {
	Date      time.Time       `json:"date"`
	Slot      int             `json:"slot"`
	Name      string          `json:"name,omitempty"`
	Exercises []ExerciseEntry `json:"exercises"`
}

// LogSession stores a workout, stamping it with the current phase, week and
// mode so later method and MEGA checks can see them. Validation is the
// caller's job: run CheckSet and CheckSchedule first.
func (a *Advisor) LogSession(ctx context.Context, userID int, req SessionRequest) (*models.WorkoutSession, error) {
	date := a.dateOrToday(req.Date)
	ps, err := a.programState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ps = program.Refresh(ps, date)

	session := models.WorkoutSession{
		ID:     uuid.New(),
		UserID: userID,
		Date:   date,
		Slot:   req.Slot,
		Phase:  ps.Phase,
		Week:   ps.Week,
		Mode:   ps.Mode,
		Name:   req.Name,
	}

	var logs []models.ExerciseLog
	for _, e := range req.Exercises {
		spec, err := a.catalog.Lookup(e.Exercise)
		if err != nil {
			return nil, err
		}
		method := e.Method
		if method == "" {
			method = spec.Method
		}
		for _, s := range e.Sets {
			s.Weight = policy.Weight(s.Weight)
			s.Reps = policy.Reps(s.Reps)
			logs = append(logs, models.ExerciseLog{
				ID:        uuid.New(),
				SessionID: session.ID,
				UserID:    userID,
				Date:      date,
				Exercise:  spec.Name,
				Method:    method,
				Phase:     ps.Phase,
				Mode:      ps.Mode,
				Set:       s,
			})
		}
	}

	if err := a.store.InsertSession(ctx, session, logs); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	a.log.Info("session logged", "user_id", userID, "date", date.Format(time.DateOnly), "sets", len(logs))
	return &session, nil
}
