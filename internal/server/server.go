package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/ingest"
	"github.com/claude/liftguard/internal/models"
	"github.com/go-chi/chi/v5"
)

// Store is the persistence the server touches directly. Everything else
// goes through the advisor.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]models.ImportLog, error)
}

// Importer ingests an uploaded history export for a user.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	advisor *advisor.Advisor
	store   Store
	alpha   Importer
	ts      WhoIsClient
	mcp     http.Handler
	devUser int
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured. Requests are
// attributed to the local dev user until SetTailscale is called.
func New(adv *advisor.Advisor, store Store, alpha Importer, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		advisor: adv,
		store:   store,
		alpha:   alpha,
		devUser: devUserID,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches identity to the tailnet: each request is attributed
// to the Tailscale user behind the connecting peer.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.ts = lc
}

// SetMCP mounts an MCP streamable HTTP handler at /mcp. It runs behind the
// same identity middleware as the REST API; use UserID to read the caller.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

// UserID returns the user a request was attributed to.
func UserID(r *http.Request) int {
	return userIDFromContext(r)
}

// SetDevUser sets the user ID requests run as without Tailscale.
func (s *Server) SetDevUser(id int) {
	s.devUser = id
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Import endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identity)
		r.Post("/api/v1/import/alpha", s.handleAlphaImport)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/import/logs", s.handleImportLogs)

		r.Get("/api/v1/exercises/{name}/target", s.handleTarget)
		r.Get("/api/v1/exercises/{name}/warmup", s.handleWarmup)
		r.Get("/api/v1/rpt-ladder", s.handleLadder)
		r.Get("/api/v1/deload", s.handleDeloadWeight)
		r.Post("/api/v1/sets/check", s.handleCheckSet)
		r.Post("/api/v1/schedule/check", s.handleCheckSchedule)

		r.Get("/api/v1/program", s.handleProgram)
		r.Get("/api/v1/program/exercises", s.handleResolveExercises)
		r.Post("/api/v1/program/advance", s.handleAdvancePhase)
		r.Post("/api/v1/program/mode", s.handleSetMode)
		r.Post("/api/v1/deload/start", s.handleStartDeload)
		r.Post("/api/v1/deload/end", s.handleEndDeload)
		r.Post("/api/v1/sessions", s.handleLogSession)
		r.Get("/api/v1/indicators", s.handleIndicators)

		r.Handle("/mcp", http.HandlerFunc(s.handleMCP))
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeError(w, http.StatusNotFound, "mcp not enabled")
		return
	}
	s.mcp.ServeHTTP(w, r)
}

// identity attributes the request to a user: the Tailscale peer when
// running on a tailnet, the dev user otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ts != nil {
			TailscaleIdentity(s.ts, s.store, s.log)(next).ServeHTTP(w, r)
			return
		}
		withIdentity(w, r, next, s.devUser, devUser)
	})
}
