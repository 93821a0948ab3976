package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "liftguard.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// TestGetOrCreateUserIsStable verifies the same login maps to the same id.
func TestGetOrCreateUserIsStable(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	a, err := s.GetOrCreateUser(ctx, "alice@example.com", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.GetOrCreateUser(ctx, "alice@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.GetOrCreateUser(ctx, "bob@example.com", "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a == c {
		t.Errorf("ids = %d, %d, %d", a, b, c)
	}
}

// TestSessionRoundTrip verifies a session and its sets come back most
// recent first, with exercise names matched case-insensitively.
func TestSessionRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	rest := 180

	for i, d := range []string{"2026-10-12", "2026-10-14"} {
		sessionID := uuid.New()
		ws := models.WorkoutSession{ID: sessionID, UserID: 1, Date: date(d), Slot: i + 1, Phase: 1, Week: 2, Mode: models.ModeStandard}
		logs := []models.ExerciseLog{
			{SessionID: sessionID, UserID: 1, Date: date(d), Exercise: "Incline Bench Press", Method: models.MethodRPT,
				Phase: 1, Mode: models.ModeStandard,
				Set: models.SetPerformance{SetNumber: 1, Weight: 200 + float64(i)*5, Reps: 5, Completed: true, RestSeconds: &rest}},
			{SessionID: sessionID, UserID: 1, Date: date(d), Exercise: "Incline Bench Press", Method: models.MethodRPT,
				Phase: 1, Mode: models.ModeStandard,
				Set: models.SetPerformance{SetNumber: 2, Weight: 180, Reps: 7, Completed: true}},
		}
		if err := s.InsertSession(ctx, ws, logs); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
	}

	got, err := s.ExerciseLogs(ctx, "incline bench press", date("2026-10-01"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("logs = %d, want 4", len(got))
	}
	if !got[0].Date.Equal(date("2026-10-14")) || got[0].Set.Weight != 205 || got[0].Set.SetNumber != 1 {
		t.Errorf("first log = %+v", got[0])
	}
	if got[0].Set.RestSeconds == nil || *got[0].Set.RestSeconds != 180 || got[1].Set.RestSeconds != nil {
		t.Errorf("rest seconds not round-tripped")
	}
	if got[0].Method != models.MethodRPT || got[0].SessionID == uuid.Nil {
		t.Errorf("first log = %+v", got[0])
	}

	other, err := s.ExerciseLogs(ctx, "Incline Bench Press", date("2026-10-01"), 2)
	if err != nil || len(other) != 0 {
		t.Errorf("other user logs = %v, %v", other, err)
	}

	dates, err := s.SessionDates(ctx, date("2026-10-12"), date("2026-10-14"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]time.Time{date("2026-10-12")}, dates); diff != "" {
		t.Errorf("SessionDates half-open range (-want +got):\n%s", diff)
	}
}

// TestInsertExerciseLogsSkipsDuplicates verifies re-importing the same sets
// inserts nothing.
func TestInsertExerciseLogsSkipsDuplicates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	logs := []models.ExerciseLog{
		{UserID: 1, Date: date("2026-09-01"), Exercise: "Squat", Set: models.SetPerformance{SetNumber: 1, Weight: 100, Reps: 5}},
		{UserID: 1, Date: date("2026-09-01"), Exercise: "Squat", Set: models.SetPerformance{SetNumber: 1, Weight: 60, Reps: 5, IsWarmup: true}},
	}
	n, err := s.InsertExerciseLogs(ctx, logs)
	if err != nil || n != 2 {
		t.Fatalf("first insert = %d, %v", n, err)
	}
	n, err = s.InsertExerciseLogs(ctx, logs)
	if err != nil || n != 0 {
		t.Errorf("second insert = %d, %v, want 0", n, err)
	}
	dates, err := s.SessionDates(ctx, date("2026-01-01"), date("2027-01-01"), 1)
	if err != nil || len(dates) != 1 {
		t.Errorf("imported dates = %v, %v", dates, err)
	}
}

// TestInsertSessionRejectsRelog verifies a same-day re-log fails as a whole
// instead of storing the session without its sets.
func TestInsertSessionRejectsRelog(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	logSession := func(weight float64) error {
		id := uuid.New()
		ws := models.WorkoutSession{ID: id, UserID: 1, Date: date("2026-10-12"), Slot: 1, Phase: 1, Week: 1, Mode: models.ModeStandard}
		return s.InsertSession(ctx, ws, []models.ExerciseLog{
			{SessionID: id, UserID: 1, Date: date("2026-10-12"), Exercise: "Incline Bench Press", Method: models.MethodRPT,
				Phase: 1, Mode: models.ModeStandard, Set: models.SetPerformance{SetNumber: 1, Weight: weight, Reps: 5, Completed: true}},
		})
	}

	if err := logSession(200); err != nil {
		t.Fatalf("first InsertSession: %v", err)
	}
	if err := logSession(205); !errors.Is(err, models.ErrDuplicateSet) {
		t.Fatalf("re-log err = %v, want ErrDuplicateSet", err)
	}

	var sessions int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workout_sessions`).Scan(&sessions); err != nil {
		t.Fatal(err)
	}
	if sessions != 1 {
		t.Errorf("sessions = %d, want the rejected one rolled back", sessions)
	}
	got, err := s.ExerciseLogs(ctx, "Incline Bench Press", date("2026-10-01"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Set.Weight != 200 {
		t.Errorf("logs = %+v, want only the first 200", got)
	}
}

// TestProgramAndDeloadState covers the not-found case and upserts.
func TestProgramAndDeloadState(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, err := s.GetProgramState(ctx, 1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetProgramState err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetDeloadState(ctx, 1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetDeloadState err = %v, want ErrNotFound", err)
	}

	want := models.ProgramState{Phase: 2, Week: 3, StartDate: date("2026-10-01"), Mode: models.ModeMega, Specialization: "shoulders"}
	if err := s.SaveProgramState(ctx, 1, want); err != nil {
		t.Fatal(err)
	}
	want.Week = 4
	if err := s.SaveProgramState(ctx, 1, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProgramState(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("program state mismatch (-want +got):\n%s", diff)
	}

	started := date("2026-10-12")
	wantDeload := models.DeloadState{Active: true, ReductionPct: 12.5, StartedAt: &started}
	if err := s.SaveDeloadState(ctx, 1, wantDeload); err != nil {
		t.Fatal(err)
	}
	gotDeload, err := s.GetDeloadState(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantDeload, gotDeload); diff != "" {
		t.Errorf("deload state mismatch (-want +got):\n%s", diff)
	}
}

// TestImportLog verifies insert, update and listing.
func TestImportLog(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id, err := s.InsertImportLog(ctx, models.ImportLog{UserID: 1, Source: "alpha_progression", Status: "running"})
	if err != nil || id == 0 {
		t.Fatalf("InsertImportLog = %d, %v", id, err)
	}
	ms := 42
	if err := s.UpdateImportLog(ctx, id, models.ImportLog{Status: "success", SetsInserted: 10, DurationMs: &ms}); err != nil {
		t.Fatal(err)
	}

	logs, err := s.QueryImportLogs(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	got := logs[0]
	if got.Status != "success" || got.SetsInserted != 10 || got.DurationMs == nil || *got.DurationMs != 42 || got.ErrorMessage != nil {
		t.Errorf("import log = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
}
