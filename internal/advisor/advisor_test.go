package advisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/catalog"
	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/program"
)

// memStore is an in-memory Store.
type memStore struct {
	sessions []models.WorkoutSession
	logs     []models.ExerciseLog
	program  map[int]models.ProgramState
	deload   map[int]models.DeloadState
}

func newMemStore() *memStore {
	return &memStore{program: map[int]models.ProgramState{}, deload: map[int]models.DeloadState{}}
}

func (m *memStore) ExerciseLogs(_ context.Context, exercise string, since time.Time, userID int) ([]models.ExerciseLog, error) {
	var out []models.ExerciseLog
	for _, l := range m.logs {
		if l.UserID == userID && strings.EqualFold(l.Exercise, exercise) && !l.Date.Before(since) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if out[i].Set.IsWarmup != out[j].Set.IsWarmup {
			return out[i].Set.IsWarmup
		}
		return out[i].Set.SetNumber < out[j].Set.SetNumber
	})
	return out, nil
}

func (m *memStore) SessionDates(_ context.Context, start, end time.Time, userID int) ([]time.Time, error) {
	seen := map[time.Time]bool{}
	add := func(d time.Time, uid int) {
		if uid == userID && !d.Before(start) && d.Before(end) {
			seen[d] = true
		}
	}
	for _, s := range m.sessions {
		add(s.Date, s.UserID)
	}
	for _, l := range m.logs {
		add(l.Date, l.UserID)
	}
	var out []time.Time
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *memStore) InsertSession(_ context.Context, s models.WorkoutSession, logs []models.ExerciseLog) error {
	m.sessions = append(m.sessions, s)
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *memStore) GetProgramState(_ context.Context, userID int) (models.ProgramState, error) {
	s, ok := m.program[userID]
	if !ok {
		return s, models.ErrNotFound
	}
	return s, nil
}

func (m *memStore) SaveProgramState(_ context.Context, userID int, s models.ProgramState) error {
	m.program[userID] = s
	return nil
}

func (m *memStore) GetDeloadState(_ context.Context, userID int) (models.DeloadState, error) {
	d, ok := m.deload[userID]
	if !ok {
		return d, models.ErrNotFound
	}
	return d, nil
}

func (m *memStore) SaveDeloadState(_ context.Context, userID int, d models.DeloadState) error {
	m.deload[userID] = d
	return nil
}

const userID = 1

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newAdvisor(t *testing.T) (*Advisor, *memStore) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, cat, Config{Now: func() time.Time { return now }}, log), store
}

func (m *memStore) addSet(day, exercise string, setNumber int, weight float64, reps int) {
	m.logs = append(m.logs, models.ExerciseLog{
		ID: uuid.New(), UserID: userID, Date: date(day), Exercise: exercise,
		Method: models.MethodRPT, Phase: 1, Mode: models.ModeStandard,
		Set: models.SetPerformance{SetNumber: setNumber, Weight: weight, Reps: reps, Completed: true},
	})
}

// TestNextTargetWithoutHistory verifies a first session asks for a weight.
func TestNextTargetWithoutHistory(t *testing.T) {
	a, _ := newAdvisor(t)
	v, err := a.NextTarget(context.Background(), userID, "Incline Bench Press")
	if err != nil {
		t.Fatal(err)
	}
	if v.Target.Weight != 0 || v.Target.Reps != 4 || v.Last != nil || len(v.Ladder) != 0 {
		t.Errorf("view = %+v", v)
	}
}

// TestNextTargetBuildsLadder verifies the anchor target, the ladder and
// that the ladder never climbs.
func TestNextTargetBuildsLadder(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-12", "Incline Bench Press", 1, 200, 5)
	store.addSet("2026-10-12", "Incline Bench Press", 2, 180, 7)

	v, err := a.NextTarget(context.Background(), userID, "incline bench press")
	if err != nil {
		t.Fatal(err)
	}
	if v.Target.Weight != 205 || v.Target.Reps != 4 {
		t.Errorf("target = %+v, want 205 x 4", v.Target)
	}
	if len(v.Ladder) != 2 || v.Ladder[0].Weight != 185 || v.Ladder[1].Weight != 165 {
		t.Errorf("ladder = %+v", v.Ladder)
	}
	if v.Last == nil || v.Last.Weight != 200 {
		t.Errorf("last = %+v", v.Last)
	}
}

// TestNextTargetAppliesDeload verifies the target and the ladder pass
// through the active deload.
func TestNextTargetAppliesDeload(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-12", "Incline Bench Press", 1, 200, 5)
	store.deload[userID] = models.DeloadState{Active: true, ReductionPct: 10}

	v, err := a.NextTarget(context.Background(), userID, "Incline Bench Press")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Deloaded || v.Target.Weight != 185 || v.Target.Reps != 4 {
		t.Errorf("deloaded target = %+v", v.Target)
	}
	if v.Ladder[0].Weight != 165 || v.Ladder[1].Weight != 150 {
		t.Errorf("deloaded ladder = %+v", v.Ladder)
	}
}

// TestNextTargetUnknownExercise returns the catalog error.
func TestNextTargetUnknownExercise(t *testing.T) {
	a, _ := newAdvisor(t)
	if _, err := a.NextTarget(context.Background(), userID, "Cossack Squat"); !errors.Is(err, catalog.ErrUnknownExercise) {
		t.Errorf("err = %v, want ErrUnknownExercise", err)
	}
}

// TestWarmup covers the explicit weight, the history fallback and the
// empty ramp.
func TestWarmup(t *testing.T) {
	a, store := newAdvisor(t)
	ctx := context.Background()

	v, err := a.Warmup(ctx, userID, "Standing Press", 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Sets == nil || len(v.Sets) != 0 {
		t.Errorf("ramp without a weight = %#v, want empty", v.Sets)
	}

	v, err = a.Warmup(ctx, userID, "Standing Press", 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Sets) != 3 || v.Sets[0].Weight != 120 || v.Sets[2].Weight != 180 {
		t.Errorf("ramp = %+v", v.Sets)
	}

	store.addSet("2026-10-12", "Standing Press", 1, 100, 5)
	v, err = a.Warmup(ctx, userID, "Standing Press", 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Working != 100 || v.Sets[0].Weight != 60 {
		t.Errorf("ramp from history = %+v", v)
	}
}

// TestDeloadWeight covers the default and the exercise increment.
func TestDeloadWeight(t *testing.T) {
	a, _ := newAdvisor(t)
	if w, err := a.DeloadWeight("", 200, 10); err != nil || w != 180 {
		t.Errorf("DeloadWeight = %v, %v, want 180", w, err)
	}
	// Weighted chin-ups use the 2.5 bodyweight increment.
	if w, err := a.DeloadWeight("Weighted Chin-up", 25, 10); err != nil || w != 22.5 {
		t.Errorf("DeloadWeight = %v, %v, want 22.5", w, err)
	}
}

// TestCheckSetValidatesAnchorOnly verifies the extreme jump on the anchor
// blocks and later ladder sets are not compared.
func TestCheckSetValidatesAnchorOnly(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-12", "Incline Bench Press", 1, 200, 5)

	c, err := a.CheckSet(context.Background(), userID, SetRequest{
		Exercise: "Incline Bench Press",
		Sets: []models.SetPerformance{
			{SetNumber: 1, Weight: 120, Reps: 5, IsWarmup: true},
			{SetNumber: 1, Weight: 225, Reps: 6},
			{SetNumber: 2, Weight: 50, Reps: 20},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(guardrail.CodeWeightJumpExtreme) || !c.Blocking() {
		t.Errorf("check = %+v, want blocking extreme jump", c)
	}
	if c.Has(guardrail.CodeRepJumpExtreme) || c.Has(guardrail.CodeRegression) {
		t.Errorf("later sets were validated: %+v", c.Findings)
	}
}

// TestCheckSetIgnoresSameDayLogs verifies a set already saved today is not
// treated as the previous session.
func TestCheckSetIgnoresSameDayLogs(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-15", "Incline Bench Press", 1, 100, 5)

	c, err := a.CheckSet(context.Background(), userID, SetRequest{
		Exercise: "Incline Bench Press",
		Sets:     []models.SetPerformance{{SetNumber: 1, Weight: 200, Reps: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Findings) != 0 {
		t.Errorf("findings = %+v, want none without prior sessions", c.Findings)
	}
}

// TestCheckSetPlateau verifies history feeds the deload-need rule.
func TestCheckSetPlateau(t *testing.T) {
	a, store := newAdvisor(t)
	for _, d := range []string{"2026-09-01", "2026-09-15", "2026-09-29", "2026-10-06", "2026-10-13"} {
		store.addSet(d, "Incline Bench Press", 1, 200, 5)
	}
	c, err := a.CheckSet(context.Background(), userID, SetRequest{
		Exercise: "Incline Bench Press",
		Sets:     []models.SetPerformance{{SetNumber: 1, Weight: 200, Reps: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(guardrail.CodeDeloadNeeded) {
		t.Errorf("findings = %+v, want deload warning", c.Findings)
	}
}

// TestCheckScheduleFullWeek verifies the stored sessions drive the
// frequency rule and its suggested date.
func TestCheckScheduleFullWeek(t *testing.T) {
	a, store := newAdvisor(t)
	for _, d := range []string{"2026-10-12", "2026-10-14", "2026-10-16"} {
		store.sessions = append(store.sessions, models.WorkoutSession{ID: uuid.New(), UserID: userID, Date: date(d)})
	}
	c, err := a.CheckSchedule(context.Background(), userID, ScheduleRequest{Date: date("2026-10-17")})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(guardrail.CodeFrequency) || !c.Has(guardrail.CodeConsecutiveDays) {
		t.Errorf("findings = %+v", c.Findings)
	}
	if c.NextAvailableDate == nil || !c.NextAvailableDate.Equal(date("2026-10-19")) {
		t.Errorf("next = %v, want 2026-10-19", c.NextAvailableDate)
	}
}

// TestCheckScheduleMethodLock verifies a method switch inside the phase is
// blocked and the catalog method passes.
func TestCheckScheduleMethodLock(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-05", "Incline Bench Press", 1, 200, 5)
	store.program[userID] = models.ProgramState{Phase: 1, Week: 2, StartDate: date("2026-10-05"), Mode: models.ModeStandard}

	c, err := a.CheckSchedule(context.Background(), userID, ScheduleRequest{
		Date:      date("2026-10-15"),
		Exercises: []ExerciseMethod{{Exercise: "Incline Bench Press", Method: models.MethodStraight}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(guardrail.CodeMethodLocked) {
		t.Errorf("findings = %+v, want method lock", c.Findings)
	}

	c, err = a.CheckSchedule(context.Background(), userID, ScheduleRequest{Date: date("2026-10-15"), Slot: 1})
	if err != nil {
		t.Fatal(err)
	}
	if c.Has(guardrail.CodeMethodLocked) || !c.Valid {
		t.Errorf("catalog methods should pass: %+v", c.Findings)
	}
	if f := c.Find(guardrail.CodePhaseProgress); f == nil || f.Message != "2 of 8 weeks completed" {
		t.Errorf("phase note = %+v", f)
	}
}

// TestCheckScheduleMethodLockResetsEachRotation verifies history from an
// earlier rotation through the same phase number does not lock the method.
func TestCheckScheduleMethodLockResetsEachRotation(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-03-02", "Romanian Deadlift", 1, 300, 8)
	store.program[userID] = models.ProgramState{Phase: 1, Week: 4, StartDate: date("2026-09-21"), Mode: models.ModeStandard}

	c, err := a.CheckSchedule(context.Background(), userID, ScheduleRequest{
		Date:      date("2026-10-15"),
		Exercises: []ExerciseMethod{{Exercise: "Romanian Deadlift", Method: models.MethodStraight}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Has(guardrail.CodeMethodLocked) {
		t.Errorf("previous rotation locked the method: %+v", c.Findings)
	}
}

// TestDeloadSessionsDoNotMoveTheBaseline logs a session during a deload and
// checks the reduction is not compounded, and that after the deload the
// target and the jump check start from the last full-weight session.
func TestDeloadSessionsDoNotMoveTheBaseline(t *testing.T) {
	a, store := newAdvisor(t)
	ctx := context.Background()
	const lift = "Incline Bench Press"
	store.addSet("2026-10-05", lift, 1, 300, 5)

	started := date("2026-10-08")
	store.deload[userID] = models.DeloadState{Active: true, ReductionPct: 10, StartedAt: &started}

	v, err := a.NextTarget(ctx, userID, lift)
	if err != nil {
		t.Fatal(err)
	}
	if v.Target.Weight != 275 || v.Target.Reps != 4 {
		t.Fatalf("first deload target = %+v, want 275 x 4", v.Target)
	}

	store.addSet("2026-10-12", lift, 1, 275, 4)
	v, err = a.NextTarget(ctx, userID, lift)
	if err != nil {
		t.Fatal(err)
	}
	if v.Target.Weight != 275 || v.Target.Reps != 4 {
		t.Errorf("second deload target = %+v, want 275 x 4", v.Target)
	}
	if v.Last == nil || v.Last.Weight != 300 {
		t.Errorf("last = %+v, want the 300 set from before the deload", v.Last)
	}

	ended := date("2026-10-14")
	store.deload[userID] = program.EndDeload(store.deload[userID], ended)

	v, err = a.NextTarget(ctx, userID, lift)
	if err != nil {
		t.Fatal(err)
	}
	if v.Deloaded || v.Target.Weight != 305 || v.Target.Reps != 4 {
		t.Errorf("post-deload target = %+v, want 305 x 4", v.Target)
	}

	c, err := a.CheckSet(ctx, userID, SetRequest{
		Exercise: lift,
		Sets:     []models.SetPerformance{{SetNumber: 1, Weight: 305, Reps: 4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Has(guardrail.CodeWeightJumpExtreme) || c.Has(guardrail.CodeWeightJump) || c.Blocking() {
		t.Errorf("resuming the pre-deload weight was flagged: %+v", c.Findings)
	}

	w, err := a.Warmup(ctx, userID, lift, 0)
	if err != nil {
		t.Fatal(err)
	}
	if w.Working != 305 {
		t.Errorf("warmup working weight = %v, want 305", w.Working)
	}

	inds, err := a.Indicators(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	for _, ind := range inds {
		if ind.Exercise == lift && (ind.Sessions != 1 || ind.Last == nil || ind.Last.Weight != 300) {
			t.Errorf("indicator = %+v, want the deload session left out", ind)
		}
	}
}

// TestCheckScheduleMegaCap verifies MEGA streaks are counted per exercise.
func TestCheckScheduleMegaCap(t *testing.T) {
	a, store := newAdvisor(t)
	store.program[userID] = models.ProgramState{Phase: 1, Week: 1, StartDate: date("2026-10-12"), Mode: models.ModeMega}
	for d := date("2026-07-21"); d.Before(date("2026-10-15")); d = d.AddDate(0, 0, 7) {
		store.logs = append(store.logs, models.ExerciseLog{
			ID: uuid.New(), UserID: userID, Date: d, Exercise: "Standing Press",
			Method: models.MethodRPT, Phase: 1, Mode: models.ModeMega,
			Set: models.SetPerformance{SetNumber: 1, Weight: 100, Reps: 5},
		})
	}
	c, err := a.CheckSchedule(context.Background(), userID, ScheduleRequest{
		Date:      date("2026-10-15"),
		Exercises: []ExerciseMethod{{Exercise: "Standing Press"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if f := c.Find(guardrail.CodeMegaCap); f == nil || f.Overridable {
		t.Errorf("findings = %+v, want MEGA cap error", c.Findings)
	}
	if !c.Has(guardrail.CodeDeloadRecommend) {
		t.Errorf("findings = %+v, want deload recommendation after 13 weeks", c.Findings)
	}
}

// TestProgramControls covers the explicit state transitions.
func TestProgramControls(t *testing.T) {
	a, store := newAdvisor(t)
	ctx := context.Background()

	v, err := a.Program(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Program.Phase != 1 || v.Program.Week != 1 || v.ReadyToRotate {
		t.Errorf("initial view = %+v", v)
	}

	v, err = a.AdvancePhase(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Program.Phase != 2 || store.program[userID].Phase != 2 {
		t.Errorf("after advance = %+v", v.Program)
	}

	v, err = a.SetMode(ctx, userID, models.ModeMega, "shoulders")
	if err != nil {
		t.Fatal(err)
	}
	if v.Program.Mode != models.ModeMega || v.Program.Phase != 2 {
		t.Errorf("after mode = %+v", v.Program)
	}
	if _, err := a.SetMode(ctx, userID, "hyper", ""); !errors.Is(err, program.ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}

	v, err = a.StartDeload(ctx, userID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Deload.Active || v.Deload.ReductionPct != 10 {
		t.Errorf("deload = %+v, want active at the default 10%%", v.Deload)
	}
	v, err = a.EndDeload(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Deload.Active || v.Deload.LastCompletedAt == nil {
		t.Errorf("deload = %+v, want ended", v.Deload)
	}
}

// TestResolveExercises verifies the stored mode drives the selection.
func TestResolveExercises(t *testing.T) {
	a, store := newAdvisor(t)
	store.program[userID] = models.ProgramState{Phase: 3, Week: 1, Mode: models.ModeMega}
	sel, err := a.ResolveExercises(context.Background(), userID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Variant != program.VariantMega || sel.Phase != 1 || len(sel.Exercises) == 0 {
		t.Errorf("selection = %+v", sel)
	}
}

// TestLogSession verifies sessions are stamped and visible to later checks.
func TestLogSession(t *testing.T) {
	a, store := newAdvisor(t)
	ctx := context.Background()
	store.program[userID] = models.ProgramState{Phase: 2, Week: 1, StartDate: date("2026-10-12"), Mode: models.ModeStandard}

	s, err := a.LogSession(ctx, userID, SessionRequest{
		Date: date("2026-10-14"),
		Slot: 1,
		Exercises: []ExerciseEntry{{
			Exercise: "standing press",
			Sets:     []models.SetPerformance{{SetNumber: 1, Weight: 100, Reps: 5}, {SetNumber: 2, Weight: -5, Reps: 7}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase != 2 || s.Week != 1 || len(store.logs) != 2 {
		t.Errorf("session = %+v, logs = %d", s, len(store.logs))
	}
	l := store.logs[0]
	if l.Exercise != "Standing Press" || l.Method != models.MethodRPT || l.Phase != 2 || l.SessionID != s.ID {
		t.Errorf("log = %+v", l)
	}
	if store.logs[1].Set.Weight != 0 {
		t.Errorf("negative weight stored as %v", store.logs[1].Set.Weight)
	}

	v, err := a.NextTarget(ctx, userID, "Standing Press")
	if err != nil {
		t.Fatal(err)
	}
	if v.Last == nil || v.Last.Weight != 100 {
		t.Errorf("last = %+v", v.Last)
	}
}

// TestIndicators lists every indicator in catalog order.
func TestIndicators(t *testing.T) {
	a, store := newAdvisor(t)
	store.addSet("2026-10-05", "Weighted Chin-up", 1, 20, 5)
	store.addSet("2026-10-12", "Weighted Chin-up", 1, 20, 5)

	got, err := a.Indicators(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || got[0].Exercise != "Incline Bench Press" {
		t.Fatalf("indicators = %+v", got)
	}
	chin := got[1]
	if chin.Sessions != 2 || chin.PlateauCount != 1 || chin.Next.Weight != 22.5 {
		t.Errorf("chin-up indicator = %+v", chin)
	}
}
