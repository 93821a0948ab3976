package advisor

import (
	"time"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/policy"
)

// Config carries the engine rules into the advisor.
type Config struct {
	Policy    policy.Policy
	Rules     guardrail.ScheduleRules
	DeloadPct float64
	// Now is the clock; tests pin it.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Policy.Rules == nil {
		c.Policy = policy.Default()
	}
	if c.Rules.MaxSessionsPerWeek == 0 && c.Rules.PhaseWeeks == 0 {
		c.Rules = guardrail.DefaultScheduleRules()
	}
	if c.DeloadPct <= 0 {
		c.DeloadPct = 10
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
