package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/models"
)

const exerciseLogColumns = 15

// InsertExerciseLogs batch-inserts logged sets. Rows that already exist for
// the same user, date, exercise and set are skipped. Returns count inserted.
func (db *DB) InsertExerciseLogs(ctx context.Context, logs []models.ExerciseLog) (int64, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	query, args := exerciseLogInsert(logs)
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting exercise logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func exerciseLogInsert(logs []models.ExerciseLog) (string, []any) {
	query := `INSERT INTO exercise_logs (id, session_id, user_id, log_date, exercise, method, phase, mode,
		set_number, weight, reps, completed, is_warmup, rest_seconds, target_reps) VALUES `
	args := make([]any, 0, len(logs)*exerciseLogColumns)
	valueStrings := make([]string, 0, len(logs))

	for i, l := range logs {
		ph := make([]string, exerciseLogColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*exerciseLogColumns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		session := uuid.NullUUID{UUID: l.SessionID, Valid: l.SessionID != uuid.Nil}
		args = append(args, id, session, l.UserID, l.Date, l.Exercise, string(l.Method), l.Phase, string(l.Mode),
			l.Set.SetNumber, l.Set.Weight, l.Set.Reps, l.Set.Completed, l.Set.IsWarmup, l.Set.RestSeconds, l.Set.TargetReps)
	}
	return query + strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING", args
}

// ExerciseLogs returns the logged sets for one exercise on or after since,
// most recent session first and in set order within a session.
func (db *DB) ExerciseLogs(ctx context.Context, exercise string, since time.Time, userID int) ([]models.ExerciseLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, user_id, log_date, exercise, method, phase, mode,
		 set_number, weight, reps, completed, is_warmup, rest_seconds, target_reps
		 FROM exercise_logs
		 WHERE user_id = $1 AND lower(exercise) = lower($2) AND log_date >= $3
		 ORDER BY log_date DESC, is_warmup DESC, set_number ASC`,
		userID, exercise, since)
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseLog
	for rows.Next() {
		var (
			l       models.ExerciseLog
			session uuid.NullUUID
			method  string
			mode    string
		)
		if err := rows.Scan(&l.ID, &session, &l.UserID, &l.Date, &l.Exercise, &method, &l.Phase, &mode,
			&l.Set.SetNumber, &l.Set.Weight, &l.Set.Reps, &l.Set.Completed, &l.Set.IsWarmup,
			&l.Set.RestSeconds, &l.Set.TargetReps); err != nil {
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		l.SessionID = session.UUID
		l.Method = models.TrainingMethod(method)
		l.Mode = models.TrainingMode(mode)
		result = append(result, l)
	}
	return result, rows.Err()
}
