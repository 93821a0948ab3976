package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/models"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// optionalDate parses s, treating empty as "today" (the zero time).
func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseFlexTime(s)
}

// bindArgs decodes the raw tool arguments into v.
func bindArgs(req mcp.CallToolRequest, v any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

var setItem = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"set_number": map[string]any{"type": "integer", "description": "1-based set number; the lowest non-warmup set is the anchor"},
		"weight":     map[string]any{"type": "number"},
		"reps":       map[string]any{"type": "integer"},
		"completed":  map[string]any{"type": "boolean"},
		"is_warmup":  map[string]any{"type": "boolean"},
	},
	"required": []string{"weight", "reps"},
}

// --- Tool definitions ---

var toolGetNextTarget = mcp.NewTool("get_next_target",
	mcp.WithDescription("Next session's target for the anchor (heaviest) set of an exercise, with the back-off ladder for reverse pyramid (rpt) exercises. Active deloads are applied."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (e.g. 'Incline Bench Press')")),
)

var toolGetRPTLadder = mcp.NewTool("get_rpt_ladder",
	mcp.WithDescription("Back-off sets that follow an anchor set the lifter actually performed."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Anchor set weight")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Anchor set reps")),
)

var toolGetWarmup = mcp.NewTool("get_warmup",
	mcp.WithDescription("Warmup ramp (60/75/90%) for a working weight. Without a working weight the next target's weight is used."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name")),
	mcp.WithNumber("working_weight", mcp.Description("Working set weight. Defaults to the next target.")),
)

var toolGetDeloadWeight = mcp.NewTool("get_deload_weight",
	mcp.WithDescription("Weight reduced by a deload percentage and rounded to the exercise's increment."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Normal working weight")),
	mcp.WithNumber("pct", mcp.Description("Reduction percentage. Defaults to the configured deload.")),
	mcp.WithString("exercise", mcp.Description("Exercise name, for its rounding increment. Defaults to barbell.")),
)

var toolCheckSet = mcp.NewTool("check_set",
	mcp.WithDescription("Check the sets just logged for an exercise against the last session and the recent trend. Returns findings: errors block, warnings need acknowledgment."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name")),
	mcp.WithArray("sets", mcp.Required(), mcp.Description("Sets performed this session"), mcp.Items(setItem)),
	mcp.WithString("date", mcp.Description("Session date (YYYY-MM-DD). Defaults to today.")),
)

var toolCheckSchedule = mcp.NewTool("check_schedule",
	mcp.WithDescription("Check a planned workout date: weekly frequency, rest days, method continuity, MEGA duration, phase progress and deload need."),
	mcp.WithString("date", mcp.Description("Planned date (YYYY-MM-DD). Defaults to today.")),
	mcp.WithNumber("slot", mcp.Description("Workout slot (1-3). Its exercises are checked when none are listed.")),
	mcp.WithArray("exercises", mcp.Description("Planned exercises with optional method (rpt, ascending, cluster, straight)"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"exercise": map[string]any{"type": "string"},
				"method":   map[string]any{"type": "string", "enum": []string{"rpt", "ascending", "cluster", "straight"}},
			},
			"required": []string{"exercise"},
		})),
)

var toolResolveExercises = mcp.NewTool("resolve_exercises",
	mcp.WithDescription("Exercise list for a workout slot under the current phase, mode and specialization."),
	mcp.WithNumber("slot", mcp.Required(), mcp.Description("Workout slot (1-3)")),
)

// --- Tool handlers ---

func (h *handlers) getNextTarget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	v, err := h.ds.NextTarget(ctx, UserIDFromContext(ctx), exercise)
	if err != nil {
		return h.fail("get_next_target", err), nil
	}
	return jsonResult(v)
}

func (h *handlers) getRPTLadder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireFloat("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	ladder, err := h.ds.Ladder(ctx, exercise, weight, int(reps))
	if err != nil {
		return h.fail("get_rpt_ladder", err), nil
	}
	return jsonResult(map[string]any{"exercise": exercise, "ladder": ladder})
}

func (h *handlers) getWarmup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	v, err := h.ds.Warmup(ctx, UserIDFromContext(ctx), exercise, req.GetFloat("working_weight", 0))
	if err != nil {
		return h.fail("get_warmup", err), nil
	}
	return jsonResult(v)
}

func (h *handlers) getDeloadWeight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	var pct *float64
	if p, err := req.RequireFloat("pct"); err == nil {
		pct = &p
	}
	exercise := req.GetString("exercise", "")
	out, err := h.ds.DeloadWeight(ctx, exercise, weight, pct)
	if err != nil {
		return h.fail("get_deload_weight", err), nil
	}
	return jsonResult(map[string]any{"weight": weight, "deload_weight": out})
}

type checkSetArgs struct {
	Exercise string                  `json:"exercise"`
	Date     string                  `json:"date"`
	Sets     []models.SetPerformance `json:"sets"`
}

func (h *handlers) checkSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args checkSetArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if args.Exercise == "" {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	if len(args.Sets) == 0 {
		return mcp.NewToolResultError("at least one set is required"), nil
	}
	date, err := optionalDate(args.Date)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	for i := range args.Sets {
		if args.Sets[i].SetNumber == 0 {
			args.Sets[i].SetNumber = i + 1
		}
	}
	check, err := h.ds.CheckSet(ctx, UserIDFromContext(ctx), advisor.SetRequest{
		Exercise: args.Exercise,
		Date:     date,
		Sets:     args.Sets,
	})
	if err != nil {
		return h.fail("check_set", err), nil
	}
	return jsonResult(check)
}

type checkScheduleArgs struct {
	Date      string                   `json:"date"`
	Slot      float64                  `json:"slot"`
	Exercises []advisor.ExerciseMethod `json:"exercises"`
}

func (h *handlers) checkSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args checkScheduleArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	date, err := optionalDate(args.Date)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	for _, e := range args.Exercises {
		if e.Method != "" && !e.Method.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown method %q for %s", e.Method, e.Exercise)), nil
		}
	}
	check, err := h.ds.CheckSchedule(ctx, UserIDFromContext(ctx), advisor.ScheduleRequest{
		Date:      date,
		Slot:      int(args.Slot),
		Exercises: args.Exercises,
	})
	if err != nil {
		return h.fail("check_schedule", err), nil
	}
	return jsonResult(check)
}

func (h *handlers) resolveExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slot, err := req.RequireFloat("slot")
	if err != nil || slot < 1 {
		return mcp.NewToolResultError("slot must be a positive integer"), nil
	}
	sel, err := h.ds.ResolveExercises(ctx, UserIDFromContext(ctx), int(slot))
	if err != nil {
		return h.fail("resolve_exercises", err), nil
	}
	return jsonResult(sel)
}

func (h *handlers) fail(tool string, err error) *mcp.CallToolResult {
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}
