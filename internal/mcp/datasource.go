package mcp

import (
	"context"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/program"
	"github.com/claude/liftguard/internal/progression"
)

// DataSource is what the MCP tools read from. Local (an in-process advisor)
// and HTTPClient (the REST API over the tailnet) both satisfy it.
type DataSource interface {
	NextTarget(ctx context.Context, userID int, exercise string) (*advisor.TargetView, error)
	Warmup(ctx context.Context, userID int, exercise string, working float64) (*advisor.WarmupView, error)
	Ladder(ctx context.Context, exercise string, weight float64, reps int) ([]progression.Target, error)
	// DeloadWeight uses the configured reduction when pct is nil.
	DeloadWeight(ctx context.Context, exercise string, weight float64, pct *float64) (float64, error)
	CheckSet(ctx context.Context, userID int, req advisor.SetRequest) (guardrail.Check, error)
	CheckSchedule(ctx context.Context, userID int, req advisor.ScheduleRequest) (guardrail.Check, error)
	ResolveExercises(ctx context.Context, userID, slot int) (program.Selection, error)
	Program(ctx context.Context, userID int) (*advisor.ProgramView, error)
}

// Local serves tools straight from an advisor.
type Local struct {
	*advisor.Advisor
}

var (
	_ DataSource = Local{}
	_ DataSource = (*HTTPClient)(nil)
)

// NewLocal wraps adv as a DataSource.
func NewLocal(adv *advisor.Advisor) Local {
	return Local{Advisor: adv}
}

// Ladder implements DataSource.
func (l Local) Ladder(_ context.Context, exercise string, weight float64, reps int) ([]progression.Target, error) {
	return l.Advisor.Ladder(exercise, weight, reps)
}

// DeloadWeight implements DataSource.
func (l Local) DeloadWeight(_ context.Context, exercise string, weight float64, pct *float64) (float64, error) {
	p := l.Advisor.DefaultDeloadPct()
	if pct != nil {
		p = *pct
	}
	return l.Advisor.DeloadWeight(exercise, weight, p)
}
