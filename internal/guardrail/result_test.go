package guardrail

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestAggregate covers the severity and proceed rules.
func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		findings []Finding
		want     Check
	}{
		{
			name: "empty",
			want: Check{Valid: true, Severity: SeveritySafe, CanProceed: true, Findings: []Finding{}},
		},
		{
			name:     "info only",
			findings: []Finding{info(CodePhaseProgress, "n")},
			want:     Check{Valid: true, Severity: SeveritySafe, CanProceed: true, Findings: []Finding{info(CodePhaseProgress, "n")}},
		},
		{
			name:     "warning",
			findings: []Finding{warning(CodeWeightJump, "w")},
			want:     Check{Valid: true, Severity: SeverityCaution, CanProceed: true, Findings: []Finding{warning(CodeWeightJump, "w")}},
		},
		{
			name:     "blocking error",
			findings: []Finding{warning(CodeWeightJump, "w"), errorFinding(CodeFrequency, "e")},
			want: Check{Valid: false, Severity: SeverityDanger, CanProceed: false,
				Findings: []Finding{warning(CodeWeightJump, "w"), errorFinding(CodeFrequency, "e")}},
		},
		{
			name:     "overridable error",
			findings: []Finding{{Code: "custom", Level: LevelError, Message: "e", Overridable: true}},
			want: Check{Valid: false, Severity: SeverityDanger, CanProceed: true,
				Findings: []Finding{{Code: "custom", Level: LevelError, Message: "e", Overridable: true}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Aggregate(tt.findings)); diff != "" {
				t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestFindingsNeverNull verifies clients always receive a findings array.
func TestFindingsNeverNull(t *testing.T) {
	b, err := json.Marshal(Aggregate(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"findings":[]`) {
		t.Errorf("json = %s", b)
	}
	if strings.Contains(string(b), "next_available_date") {
		t.Errorf("json = %s, want next_available_date omitted", b)
	}
}

// TestMerge verifies findings are concatenated and the first date wins.
func TestMerge(t *testing.T) {
	first := day("2026-10-19")
	second := day("2026-10-21")
	a := Aggregate([]Finding{warning(CodeWeightJump, "w")})
	b := Aggregate([]Finding{errorFinding(CodeFrequency, "e")})
	b.NextAvailableDate = &first
	c := Aggregate(nil)
	c.NextAvailableDate = &second

	got := Merge(a, b, c)
	if len(got.Findings) != 2 || got.CanProceed || got.Severity != SeverityDanger {
		t.Errorf("merged = %+v", got)
	}
	if got.NextAvailableDate == nil || !got.NextAvailableDate.Equal(first) {
		t.Errorf("next = %v, want %v", got.NextAvailableDate, first.Format(time.DateOnly))
	}
}

// TestAcknowledgment verifies the three rendering outcomes.
func TestAcknowledgment(t *testing.T) {
	if c := Aggregate([]Finding{info(CodeDeloadAdvisory, "i")}); c.RequiresAcknowledgment() || c.Blocking() {
		t.Error("info should neither block nor need acknowledgment")
	}
	if c := Aggregate([]Finding{warning(CodeRegression, "w")}); !c.RequiresAcknowledgment() || c.Blocking() {
		t.Error("warning should need acknowledgment only")
	}
	if c := Aggregate([]Finding{errorFinding(CodeMegaCap, "e")}); c.RequiresAcknowledgment() || !c.Blocking() {
		t.Error("error should block")
	}
}
