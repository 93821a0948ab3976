// Command liftguard-mcp serves the LiftGuard tools to an agent over stdio.
// It reads the configured database directly, or proxies a remote server
// when -server is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/catalog"
	"github.com/claude/liftguard/internal/config"
	"github.com/claude/liftguard/internal/database"
	"github.com/claude/liftguard/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	migrations := flag.String("migrations", "migrations", "path to the postgres migrations directory (local mode)")
	login := flag.String("login", "local", "user whose history is read (local mode)")
	serverURL := flag.String("server", "", "LiftGuard server URL; proxies the REST API instead of opening the database")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftguard-mcp", Version)
		return
	}

	// stdout carries the protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiftGuard MCP starting", "version", Version)

	ctx := context.Background()
	var (
		ds     mcp.DataSource
		userID = 1
	)

	if *serverURL != "" {
		ds = mcp.NewHTTPClient(*serverURL)
		log.Info("using remote data source", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		store, closeStore, err := database.Open(ctx, cfg.Database, *migrations, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer closeStore()

		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			log.Error("failed to load catalog", "error", err)
			os.Exit(1)
		}
		userID, err = store.GetOrCreateUser(ctx, *login, "")
		if err != nil {
			log.Error("failed to resolve user", "login", *login, "error", err)
			os.Exit(1)
		}

		pol, _ := cfg.Engine.Policy()
		rules, _ := cfg.Engine.ScheduleRules()
		ds = mcp.NewLocal(advisor.New(store, cat, advisor.Config{
			Policy:    pol,
			Rules:     rules,
			DeloadPct: cfg.Engine.DeloadPct(),
		}, log))
	}

	s := mcp.New(ds, Version, log)
	err := mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, userID)
	}))
	if err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
