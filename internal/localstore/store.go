// Package localstore is a single-file SQLite store for running LiftGuard
// without a Postgres server. It offers the same repository methods as
// internal/storage.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/liftguard/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_seen    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS workout_sessions (
	id           TEXT PRIMARY KEY,
	user_id      INTEGER NOT NULL,
	session_date TEXT NOT NULL,
	slot         INTEGER NOT NULL DEFAULT 0,
	phase        INTEGER NOT NULL DEFAULT 1,
	week         INTEGER NOT NULL DEFAULT 1,
	mode         TEXT NOT NULL DEFAULT 'standard',
	name         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS exercise_logs (
	id           TEXT PRIMARY KEY,
	session_id   TEXT,
	user_id      INTEGER NOT NULL,
	log_date     TEXT NOT NULL,
	exercise     TEXT NOT NULL,
	method       TEXT NOT NULL DEFAULT 'straight',
	phase        INTEGER NOT NULL DEFAULT 1,
	mode         TEXT NOT NULL DEFAULT 'standard',
	set_number   INTEGER NOT NULL,
	weight       REAL NOT NULL DEFAULT 0,
	reps         INTEGER NOT NULL DEFAULT 0,
	completed    INTEGER NOT NULL DEFAULT 1,
	is_warmup    INTEGER NOT NULL DEFAULT 0,
	rest_seconds INTEGER,
	target_reps  TEXT NOT NULL DEFAULT '',
	UNIQUE (user_id, log_date, exercise, is_warmup, set_number)
);
CREATE TABLE IF NOT EXISTS program_state (
	user_id        INTEGER PRIMARY KEY,
	phase          INTEGER NOT NULL,
	week           INTEGER NOT NULL,
	start_date     TEXT,
	mode           TEXT NOT NULL,
	specialization TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS deload_state (
	user_id           INTEGER PRIMARY KEY,
	active            INTEGER NOT NULL,
	reduction_pct     REAL NOT NULL,
	started_at        TEXT,
	last_completed_at TEXT
);
CREATE TABLE IF NOT EXISTS import_logs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id           INTEGER NOT NULL,
	created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source            TEXT NOT NULL,
	status            TEXT NOT NULL,
	sessions_received INTEGER NOT NULL DEFAULT 0,
	sets_received     INTEGER NOT NULL DEFAULT 0,
	sets_inserted     INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER,
	error_message     TEXT
);`

// Store is a SQLite-backed repository.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUser finds or creates a user by login name and returns its ID.
func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name) VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = CURRENT_TIMESTAMP,
			    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// InsertExerciseLogs inserts logged sets, skipping duplicates. Returns count inserted.
func (s *Store) InsertExerciseLogs(ctx context.Context, logs []models.ExerciseLog) (int64, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	n, err := insertLogs(ctx, tx, logs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing exercise logs: %w", err)
	}
	return n, nil
}

func insertLogs(ctx context.Context, tx *sql.Tx, logs []models.ExerciseLog) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO exercise_logs
		(id, session_id, user_id, log_date, exercise, method, phase, mode,
		 set_number, weight, reps, completed, is_warmup, rest_seconds, target_reps)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing exercise log insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, l := range logs {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		var session any
		if l.SessionID != uuid.Nil {
			session = l.SessionID.String()
		}
		res, err := stmt.ExecContext(ctx, id.String(), session, l.UserID, dateString(l.Date), l.Exercise,
			string(l.Method), l.Phase, string(l.Mode), l.Set.SetNumber, l.Set.Weight, l.Set.Reps,
			l.Set.Completed, l.Set.IsWarmup, l.Set.RestSeconds, l.Set.TargetReps)
		if err != nil {
			return 0, fmt.Errorf("inserting exercise log: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, nil
}

// ExerciseLogs returns the logged sets for one exercise on or after since,
// most recent session first and in set order within a session.
func (s *Store) ExerciseLogs(ctx context.Context, exercise string, since time.Time, userID int) ([]models.ExerciseLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_id, log_date, exercise, method, phase, mode,
		 set_number, weight, reps, completed, is_warmup, rest_seconds, target_reps
		 FROM exercise_logs
		 WHERE user_id = ? AND lower(exercise) = lower(?) AND log_date >= ?
		 ORDER BY log_date DESC, is_warmup DESC, set_number ASC`,
		userID, strings.TrimSpace(exercise), dateString(since))
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseLog
	for rows.Next() {
		var (
			l                      models.ExerciseLog
			id, date, method, mode string
			session                sql.NullString
			rest                   sql.NullInt64
		)
		if err := rows.Scan(&id, &session, &l.UserID, &date, &l.Exercise, &method, &l.Phase, &mode,
			&l.Set.SetNumber, &l.Set.Weight, &l.Set.Reps, &l.Set.Completed, &l.Set.IsWarmup,
			&rest, &l.Set.TargetReps); err != nil {
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		if l.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing log id: %w", err)
		}
		if session.Valid {
			if l.SessionID, err = uuid.Parse(session.String); err != nil {
				return nil, fmt.Errorf("parsing session id: %w", err)
			}
		}
		if l.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if rest.Valid {
			r := int(rest.Int64)
			l.Set.RestSeconds = &r
		}
		l.Method = models.TrainingMethod(method)
		l.Mode = models.TrainingMode(mode)
		result = append(result, l)
	}
	return result, rows.Err()
}

// InsertSession stores a workout session and its sets in one transaction.
// When any set is already stored for its date it fails with
// models.ErrDuplicateSet and nothing is written.
func (s *Store) InsertSession(ctx context.Context, ws models.WorkoutSession, logs []models.ExerciseLog) error {
	if ws.ID == uuid.Nil {
		return errors.New("inserting session: missing id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning session tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workout_sessions (id, user_id, session_date, slot, phase, week, mode, name)
		 VALUES (?,?,?,?,?,?,?,?)`,
		ws.ID.String(), ws.UserID, dateString(ws.Date), ws.Slot, ws.Phase, ws.Week, string(ws.Mode), ws.Name)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	n, err := insertLogs(ctx, tx, logs)
	if err != nil {
		return err
	}
	if n < int64(len(logs)) {
		return fmt.Errorf("inserting session sets: %d of %d: %w", int64(len(logs))-n, len(logs), models.ErrDuplicateSet)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// SessionDates returns the distinct training dates in [start, end), oldest first.
func (s *Store) SessionDates(ctx context.Context, start, end time.Time, userID int) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d FROM (
		   SELECT session_date AS d FROM workout_sessions WHERE user_id = ?1
		   UNION
		   SELECT log_date AS d FROM exercise_logs WHERE user_id = ?1
		 )
		 WHERE d >= ?2 AND d < ?3
		 ORDER BY d ASC`,
		userID, dateString(start), dateString(end))
	if err != nil {
		return nil, fmt.Errorf("querying session dates: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning session date: %w", err)
		}
		t, err := parseDate(d)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetProgramState returns the stored program state, or models.ErrNotFound.
func (s *Store) GetProgramState(ctx context.Context, userID int) (models.ProgramState, error) {
	var (
		ps    models.ProgramState
		start sql.NullString
		mode  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT phase, week, start_date, mode, specialization FROM program_state WHERE user_id = ?`,
		userID).Scan(&ps.Phase, &ps.Week, &start, &mode, &ps.Specialization)
	if errors.Is(err, sql.ErrNoRows) {
		return ps, models.ErrNotFound
	}
	if err != nil {
		return ps, fmt.Errorf("querying program state: %w", err)
	}
	if start.Valid {
		if ps.StartDate, err = parseDate(start.String); err != nil {
			return ps, err
		}
	}
	ps.Mode = models.TrainingMode(mode)
	return ps, nil
}

// SaveProgramState upserts the program state.
func (s *Store) SaveProgramState(ctx context.Context, userID int, ps models.ProgramState) error {
	var start any
	if !ps.StartDate.IsZero() {
		start = dateString(ps.StartDate)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO program_state (user_id, phase, week, start_date, mode, specialization)
		 VALUES (?,?,?,?,?,?)`,
		userID, ps.Phase, ps.Week, start, string(ps.Mode), ps.Specialization)
	if err != nil {
		return fmt.Errorf("saving program state: %w", err)
	}
	return nil
}

// GetDeloadState returns the stored deload state, or models.ErrNotFound.
func (s *Store) GetDeloadState(ctx context.Context, userID int) (models.DeloadState, error) {
	var (
		d                  models.DeloadState
		started, completed sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT active, reduction_pct, started_at, last_completed_at FROM deload_state WHERE user_id = ?`,
		userID).Scan(&d.Active, &d.ReductionPct, &started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return d, models.ErrNotFound
	}
	if err != nil {
		return d, fmt.Errorf("querying deload state: %w", err)
	}
	if d.StartedAt, err = parseOptionalDate(started); err != nil {
		return d, err
	}
	if d.LastCompletedAt, err = parseOptionalDate(completed); err != nil {
		return d, err
	}
	return d, nil
}

// SaveDeloadState upserts the deload state.
func (s *Store) SaveDeloadState(ctx context.Context, userID int, d models.DeloadState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO deload_state (user_id, active, reduction_pct, started_at, last_completed_at)
		 VALUES (?,?,?,?,?)`,
		userID, d.Active, d.ReductionPct, optionalDate(d.StartedAt), optionalDate(d.LastCompletedAt))
	if err != nil {
		return fmt.Errorf("saving deload state: %w", err)
	}
	return nil
}

// InsertImportLog creates a new import log entry and returns its ID.
func (s *Store) InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO import_logs (user_id, source, status, sessions_received, sets_received,
		 sets_inserted, duration_ms, error_message) VALUES (?,?,?,?,?,?,?,?)`,
		log.UserID, log.Source, log.Status, log.SessionsReceived, log.SetsReceived,
		log.SetsInserted, log.DurationMs, log.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return res.LastInsertId()
}

// UpdateImportLog updates an existing import log entry.
func (s *Store) UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_logs SET status = ?, sessions_received = ?, sets_received = ?,
		 sets_inserted = ?, duration_ms = ?, error_message = ? WHERE id = ?`,
		log.Status, log.SessionsReceived, log.SetsReceived, log.SetsInserted,
		log.DurationMs, log.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (s *Store) QueryImportLogs(ctx context.Context, userID, limit int) ([]models.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, CAST(created_at AS TEXT), source, status, sessions_received, sets_received,
		 sets_inserted, duration_ms, error_message
		 FROM import_logs WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []models.ImportLog
	for rows.Next() {
		var (
			l       models.ImportLog
			created string
			dur     sql.NullInt64
			msg     sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserID, &created, &l.Source, &l.Status,
			&l.SessionsReceived, &l.SetsReceived, &l.SetsInserted, &dur, &msg); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		l.CreatedAt, _ = time.Parse(time.DateTime, created)
		if dur.Valid {
			d := int(dur.Int64)
			l.DurationMs = &d
		}
		if msg.Valid {
			l.ErrorMessage = &msg.String
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func dateString(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return t, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

func parseOptionalDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dateString(*t)
}
