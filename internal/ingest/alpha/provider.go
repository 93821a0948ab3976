package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/liftguard/internal/ingest"
	"github.com/claude/liftguard/internal/models"
)

// Source is the import log source name.
const Source = "alpha_progression"

// Store is the persistence an import needs.
type Store interface {
	InsertExerciseLogs(ctx context.Context, logs []models.ExerciseLog) (int64, error)
	InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store   Store
	catalog Catalog
	log     *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store Store, catalog Catalog, log *slog.Logger) *Provider {
	return &Provider{store: store, catalog: catalog, log: log}
}

// Ingest parses an export and stores its sets. Sets already stored for the
// same day, exercise and set number are skipped, so re-imports are safe.
// Every run is recorded in the import log.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	start := time.Now()
	entry := models.ImportLog{UserID: userID, Source: Source, Status: ingest.StatusRunning}
	logID, err := p.store.InsertImportLog(ctx, entry)
	if err != nil {
		p.log.Warn("import log unavailable", "error", err)
	}

	result, err := p.ingest(ctx, r, userID)

	if logID != 0 {
		entry.Status = ingest.StatusSuccess
		if result != nil {
			entry.SessionsReceived = result.SessionsReceived
			entry.SetsReceived = result.SetsReceived
			entry.SetsInserted = result.SetsInserted
		}
		if err != nil {
			entry.Status = ingest.StatusError
			msg := err.Error()
			entry.ErrorMessage = &msg
		}
		ms := int(time.Since(start).Milliseconds())
		entry.DurationMs = &ms
		if uerr := p.store.UpdateImportLog(ctx, logID, entry); uerr != nil {
			p.log.Warn("updating import log", "id", logID, "error", uerr)
		}
	}
	if err != nil {
		return nil, err
	}
	p.log.Info("alpha import complete",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets_received", result.SetsReceived,
		"sets_inserted", result.SetsInserted,
		"unknown_exercises", len(result.UnknownExercises),
	)
	return result, nil
}

func (p *Provider) ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	logs, unknown := Logs(sessions, userID, p.catalog)
	result := &ingest.Result{
		SessionsReceived: len(sessions),
		SetsReceived:     len(logs),
		UnknownExercises: unknown,
	}
	if len(logs) == 0 {
		result.Message = "no sets found"
		return result, nil
	}
	inserted, err := p.store.InsertExerciseLogs(ctx, logs)
	if err != nil {
		return result, fmt.Errorf("inserting sets: %w", err)
	}
	result.SetsInserted = inserted
	result.SetsSkipped = int64(len(logs)) - inserted
	return result, nil
}
