package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/models"
)

// InsertSession stores a workout session and its sets in one transaction.
// When any set is already stored for its date it fails with
// models.ErrDuplicateSet and nothing is written.
func (db *DB) InsertSession(ctx context.Context, s models.WorkoutSession, logs []models.ExerciseLog) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("inserting session: missing id")
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning session tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, session_date, slot, phase, week, mode, name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.UserID, s.Date, s.Slot, s.Phase, s.Week, string(s.Mode), s.Name)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if len(logs) > 0 {
		query, args := exerciseLogInsert(logs)
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("inserting session sets: %w", err)
		}
		if n := tag.RowsAffected(); n < int64(len(logs)) {
			return fmt.Errorf("inserting session sets: %d of %d: %w", int64(len(logs))-n, len(logs), models.ErrDuplicateSet)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// SessionDates returns the distinct training dates in [start, end), oldest
// first. Days with imported sets but no session row count as well.
func (db *DB) SessionDates(ctx context.Context, start, end time.Time, userID int) ([]time.Time, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT d FROM (
		   SELECT session_date AS d FROM workout_sessions WHERE user_id = $1
		   UNION
		   SELECT log_date AS d FROM exercise_logs WHERE user_id = $1
		 ) dates
		 WHERE d >= $2 AND d < $3
		 ORDER BY d ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying session dates: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning session date: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
