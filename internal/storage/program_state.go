package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftguard/internal/models"
)

// GetProgramState returns the stored program state, or models.ErrNotFound.
func (db *DB) GetProgramState(ctx context.Context, userID int) (models.ProgramState, error) {
	var (
		s     models.ProgramState
		start *time.Time
		mode  string
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT phase, week, start_date, mode, specialization FROM program_state WHERE user_id = $1`,
		userID).Scan(&s.Phase, &s.Week, &start, &mode, &s.Specialization)
	if err != nil {
		return s, fmt.Errorf("querying program state: %w", notFound(err))
	}
	if start != nil {
		s.StartDate = *start
	}
	s.Mode = models.TrainingMode(mode)
	return s, nil
}

// SaveProgramState upserts the program state.
func (db *DB) SaveProgramState(ctx context.Context, userID int, s models.ProgramState) error {
	var start *time.Time
	if !s.StartDate.IsZero() {
		start = &s.StartDate
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO program_state (user_id, phase, week, start_date, mode, specialization)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (user_id) DO UPDATE SET
		   phase = EXCLUDED.phase, week = EXCLUDED.week, start_date = EXCLUDED.start_date,
		   mode = EXCLUDED.mode, specialization = EXCLUDED.specialization, updated_at = NOW()`,
		userID, s.Phase, s.Week, start, string(s.Mode), s.Specialization)
	if err != nil {
		return fmt.Errorf("saving program state: %w", err)
	}
	return nil
}

// GetDeloadState returns the stored deload state, or models.ErrNotFound.
func (db *DB) GetDeloadState(ctx context.Context, userID int) (models.DeloadState, error) {
	var d models.DeloadState
	err := db.Pool.QueryRow(ctx,
		`SELECT active, reduction_pct, started_at, last_completed_at FROM deload_state WHERE user_id = $1`,
		userID).Scan(&d.Active, &d.ReductionPct, &d.StartedAt, &d.LastCompletedAt)
	if err != nil {
		return d, fmt.Errorf("querying deload state: %w", notFound(err))
	}
	return d, nil
}

// SaveDeloadState upserts the deload state.
func (db *DB) SaveDeloadState(ctx context.Context, userID int, d models.DeloadState) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO deload_state (user_id, active, reduction_pct, started_at, last_completed_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   active = EXCLUDED.active, reduction_pct = EXCLUDED.reduction_pct,
		   started_at = EXCLUDED.started_at, last_completed_at = EXCLUDED.last_completed_at,
		   updated_at = NOW()`,
		userID, d.Active, d.ReductionPct, d.StartedAt, d.LastCompletedAt)
	if err != nil {
		return fmt.Errorf("saving deload state: %w", err)
	}
	return nil
}
