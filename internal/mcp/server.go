// Package mcp exposes the guardrail engine as Model Context Protocol tools
// so an agent can plan and check workouts.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftGuard", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftGuard training guardrails. Get progression targets, warmups and deload weights, "+
			"and check a logged set or a planned workout date before accepting it. Errors block, warnings need the "+
			"lifter's acknowledgment, info is advisory."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetNextTarget, Handler: h.getNextTarget},
		server.ServerTool{Tool: toolGetRPTLadder, Handler: h.getRPTLadder},
		server.ServerTool{Tool: toolGetWarmup, Handler: h.getWarmup},
		server.ServerTool{Tool: toolGetDeloadWeight, Handler: h.getDeloadWeight},
		server.ServerTool{Tool: toolCheckSet, Handler: h.checkSet},
		server.ServerTool{Tool: toolCheckSchedule, Handler: h.checkSchedule},
		server.ServerTool{Tool: toolResolveExercises, Handler: h.resolveExercises},
	)

	s.AddResources(
		server.ServerResource{Resource: resProgramState, Handler: h.programState},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resProgramState = mcp.NewResource(
	"liftguard://program_state",
	"Program State",
	mcp.WithResourceDescription("Current phase, week, mode, specialization and deload status, with the phase progress note"),
	mcp.WithMIMEType("application/json"),
)
