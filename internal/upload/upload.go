// Package upload sends Alpha Progression exports from a workstation to a
// remote LiftGuard server, skipping files the server already accepted.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/claude/liftguard/internal/ingest"
	"github.com/claude/liftguard/internal/ingest/alpha"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SetsInserted int64
	SetsSkipped  int64

	UnknownExercises []string
}

func (s *Stats) add(r *ingest.Result) {
	s.SetsInserted += r.SetsInserted
	s.SetsSkipped += r.SetsSkipped
	for _, name := range r.UnknownExercises {
		if !slices.Contains(s.UnknownExercises, name) {
			s.UnknownExercises = append(s.UnknownExercises, name)
		}
	}
}

// Uploader sends every CSV export under a set of paths to the server.
type Uploader struct {
	client *Client
	state  *StateDB
	server string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. In dry-run mode exports are parsed locally
// and counted but never sent.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		server: client.serverURL,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads each file, or each *.csv directly inside each directory, in
// paths. A failing file is logged and counted; the rest still go out.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Stats, error) {
	files, err := ExportFiles(paths)
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, path); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "file", path, "error", err)
		}
	}
	slices.Sort(u.stats.UnknownExercises)
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	hash := HashBytes(data)
	size := int64(len(data))

	done, err := u.state.IsUploaded(path, size, hash, u.server)
	if err != nil {
		return fmt.Errorf("checking state: %w", err)
	}
	if done {
		u.stats.FilesSkipped++
		u.log.Debug("already uploaded", "file", path)
		return nil
	}

	if u.dryRun {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return err
		}
		sets := 0
		for _, s := range sessions {
			for _, e := range s.Exercises {
				sets += len(e.WorkingSets())
			}
		}
		u.log.Info("dry run", "file", path, "sessions", len(sessions), "sets", sets)
		return nil
	}

	result, err := u.client.SendAlpha(ctx, data)
	if err != nil {
		return err
	}
	if err := u.state.MarkUploaded(path, size, hash, u.server); err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	u.stats.FilesUploaded++
	u.stats.add(result)
	u.log.Info("uploaded", "file", path, "inserted", result.SetsInserted, "skipped", result.SetsSkipped)
	return nil
}

// ExportFiles expands paths into a sorted list of CSV files. Directories
// contribute their *.csv entries; they are not walked recursively.
func ExportFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
