// Command liftguard-import loads Alpha Progression CSV exports. By default
// it writes straight into the configured database; with -server it uploads
// the exports to a running LiftGuard instance instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/liftguard/internal/catalog"
	"github.com/claude/liftguard/internal/config"
	"github.com/claude/liftguard/internal/database"
	"github.com/claude/liftguard/internal/ingest/alpha"
	"github.com/claude/liftguard/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	migrations := flag.String("migrations", "migrations", "path to the postgres migrations directory (local mode)")
	login := flag.String("login", "local", "user the history belongs to (local mode)")
	serverURL := flag.String("server", "", "LiftGuard server URL; uploads instead of writing the database")
	apiKey := flag.String("api-key", os.Getenv("LIFTGUARD_AUTH_API_KEY"), "import API key (server mode)")
	stateDir := flag.String("state-dir", "", "upload state directory (server mode, default ~/.liftguard-import)")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without writing or sending")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftguard-import", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: liftguard-import [-config config.yaml | -server <URL>] [-dry-run] <export.csv|dir>...\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode: nothing will be written")
	}

	var err error
	if *serverURL != "" {
		err = runUpload(ctx, log, *serverURL, *apiKey, *stateDir, *dryRun, flag.Args())
	} else {
		err = runLocal(ctx, log, *configPath, *migrations, *login, *dryRun, flag.Args())
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func runUpload(ctx context.Context, log *slog.Logger, serverURL, apiKey, stateDir string, dryRun bool, paths []string) error {
	if apiKey == "" && !dryRun {
		return fmt.Errorf("-api-key (or LIFTGUARD_AUTH_API_KEY) is required with -server")
	}
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".liftguard-import")
	}
	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		return err
	}
	defer state.Close()

	u := upload.New(upload.NewClient(serverURL, apiKey), state, dryRun, log)
	stats, err := u.Run(ctx, paths)
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sets_inserted", stats.SetsInserted,
		"sets_skipped", stats.SetsSkipped,
	)
	if len(stats.UnknownExercises) > 0 {
		log.Info("exercises not in the catalog (stored as straight sets)", "exercises", stats.UnknownExercises)
	}
	if err != nil {
		return err
	}
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d file(s) failed", stats.FilesErrored)
	}
	return nil
}

func runLocal(ctx context.Context, log *slog.Logger, configPath, migrations, login string, dryRun bool, paths []string) error {
	files, err := upload.ExportFiles(paths)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	if dryRun {
		for _, path := range files {
			if err := inspect(log, path, cat); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	}

	store, closeStore, err := database.Open(ctx, cfg.Database, migrations, log)
	if err != nil {
		return err
	}
	defer closeStore()

	userID, err := store.GetOrCreateUser(ctx, login, "")
	if err != nil {
		return fmt.Errorf("resolving user %s: %w", login, err)
	}

	provider := alpha.NewProvider(store, cat, log)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		res, err := provider.Ingest(ctx, f, userID)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Info("imported", "file", path,
			"sessions", res.SessionsReceived,
			"sets_inserted", res.SetsInserted,
			"sets_skipped", res.SetsSkipped,
		)
		if len(res.UnknownExercises) > 0 {
			log.Info("exercises not in the catalog (stored as straight sets)", "exercises", res.UnknownExercises)
		}
	}
	return nil
}

// inspect parses an export and reports what an import would store.
func inspect(log *slog.Logger, path string, cat alpha.Catalog) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sessions, err := alpha.Parse(f)
	if err != nil {
		return err
	}
	logs, unknown := alpha.Logs(sessions, 0, cat)
	log.Info("dry run", "file", path, "sessions", len(sessions), "sets", len(logs))
	if len(unknown) > 0 {
		log.Info("exercises not in the catalog (stored as straight sets)", "exercises", unknown)
	}
	return nil
}
