// Package guardrail decides whether a logged set or a proposed workout date
// is safe to accept. Validators never return Go errors for domain
// conditions: every outcome is a Check the caller renders as a block, an
// acknowledgment prompt or a plain note.
package guardrail

import "time"

// Level classifies a single finding.
type Level string

const (
	// LevelError blocks submission.
	LevelError Level = "error"
	// LevelWarning needs an explicit acknowledgment before proceeding.
	LevelWarning Level = "warning"
	// LevelInfo is advisory only.
	LevelInfo Level = "info"
)

// Severity is the overall classification of a Check.
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityCaution Severity = "caution"
	SeverityDanger  Severity = "danger"
)

// Code identifies the rule that produced a finding.
type Code string

const (
	CodeWeightJumpExtreme Code = "weight_jump_extreme"
	CodeWeightJump        Code = "weight_jump"
	CodeRepJumpExtreme    Code = "rep_jump_extreme"
	CodeRepJump           Code = "rep_jump"
	CodeRegression        Code = "regression"
	CodeVolumeDrop        Code = "volume_drop"
	CodeVelocityExtreme   Code = "velocity_unsustainable"
	CodeVelocityHigh      Code = "velocity_above_average"
	CodeDeloadNeeded      Code = "deload_needed"
	CodeDeloadReminder    Code = "deload_reminder"

	CodeFrequency       Code = "frequency_exceeded"
	CodeConsecutiveDays Code = "consecutive_days"
	CodeMethodLocked    Code = "method_locked"
	CodeMegaCap         Code = "mega_cap_reached"
	CodeMegaApproaching Code = "mega_cap_approaching"
	CodePhaseProgress   Code = "phase_progress"
	CodePhaseRotate     Code = "phase_ready_to_rotate"
	CodeDeloadRecommend Code = "deload_recommended"
	CodeDeloadAdvisory  Code = "deload_advisory"
)

// Finding is one rule outcome.
type Finding struct {
	Code        Code   `json:"code"`
	Level       Level  `json:"level"`
	Message     string `json:"message"`
	Overridable bool   `json:"overridable"`
}

// Check is the aggregated result of a validator.
type Check struct {
	Valid             bool       `json:"valid"`
	Severity          Severity   `json:"severity"`
	CanProceed        bool       `json:"can_proceed"`
	Findings          []Finding  `json:"findings"`
	NextAvailableDate *time.Time `json:"next_available_date,omitempty"`
}

// Aggregate builds a Check from findings. Severity is danger when any error
// is present, caution when any warning is, and safe otherwise. A check can
// proceed when it has no errors, or when every error and warning present is
// overridable.
func Aggregate(findings []Finding) Check {
	c := Check{Findings: findings, Severity: SeveritySafe, Valid: true, CanProceed: true}
	if c.Findings == nil {
		c.Findings = []Finding{}
	}

	allOverridable := true
	for _, f := range c.Findings {
		switch f.Level {
		case LevelError:
			c.Valid = false
			c.Severity = SeverityDanger
		case LevelWarning:
			if c.Severity == SeveritySafe {
				c.Severity = SeverityCaution
			}
		default:
			continue
		}
		if !f.Overridable {
			allOverridable = false
		}
	}
	c.CanProceed = c.Valid || allOverridable
	return c
}

// Merge combines independently produced checks into one result for the UI.
// The first non-nil next available date wins.
func Merge(checks ...Check) Check {
	var findings []Finding
	var next *time.Time
	for _, c := range checks {
		findings = append(findings, c.Findings...)
		if next == nil && c.NextAvailableDate != nil {
			next = c.NextAvailableDate
		}
	}
	out := Aggregate(findings)
	out.NextAvailableDate = next
	return out
}

// RequiresAcknowledgment reports whether the caller must show an explicit
// "I understand" step before accepting the input.
func (c Check) RequiresAcknowledgment() bool {
	if !c.CanProceed {
		return false
	}
	for _, f := range c.Findings {
		if f.Level == LevelError || f.Level == LevelWarning {
			return true
		}
	}
	return false
}

// Blocking reports whether the caller must refuse the input outright.
func (c Check) Blocking() bool {
	return !c.CanProceed
}

// Has reports whether a finding with code is present.
func (c Check) Has(code Code) bool {
	return c.Find(code) != nil
}

// Find returns the first finding with code, or nil.
func (c Check) Find(code Code) *Finding {
	for i := range c.Findings {
		if c.Findings[i].Code == code {
			return &c.Findings[i]
		}
	}
	return nil
}

func errorFinding(code Code, msg string) Finding {
	return Finding{Code: code, Level: LevelError, Message: msg}
}

func warning(code Code, msg string) Finding {
	return Finding{Code: code, Level: LevelWarning, Message: msg, Overridable: true}
}

func info(code Code, msg string) Finding {
	return Finding{Code: code, Level: LevelInfo, Message: msg, Overridable: true}
}
