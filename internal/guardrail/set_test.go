package guardrail

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

func barbellSpec() models.ExerciseSpec {
	return models.ExerciseSpec{
		Name:      "Incline Bench Press",
		Method:    models.MethodRPT,
		Equipment: models.EquipmentBarbell,
		RepRange:  models.RepRange{Min: 4, Max: 5},
	}
}

func set(weight float64, reps int) models.SetPerformance {
	return models.SetPerformance{SetNumber: 1, Weight: weight, Reps: reps, Completed: true}
}

func ptr[T any](v T) *T { return &v }

// TestCheckSetWithoutHistory verifies the check is skipped when there is no
// prior set to compare against.
func TestCheckSetWithoutHistory(t *testing.T) {
	c := CheckSet(SetInput{Current: set(500, 30), Spec: barbellSpec()}, policy.Default())
	if c.Severity != SeveritySafe || !c.CanProceed || len(c.Findings) != 0 {
		t.Errorf("check = %+v, want safe with no findings", c)
	}
}

// TestExtremeWeightJump covers the worked example: 200x5 to 225x6 on a
// barbell is a 25 jump, beyond twice the safe 10.
func TestExtremeWeightJump(t *testing.T) {
	c := CheckSet(SetInput{Current: set(225, 6), Last: ptr(set(200, 5)), Spec: barbellSpec()}, policy.Default())
	f := c.Find(CodeWeightJumpExtreme)
	if f == nil {
		t.Fatalf("missing %s in %+v", CodeWeightJumpExtreme, c.Findings)
	}
	if f.Overridable {
		t.Error("extreme weight jump must not be overridable")
	}
	if c.Severity != SeverityDanger || c.CanProceed || c.Valid {
		t.Errorf("severity=%s canProceed=%v valid=%v, want danger/false/false", c.Severity, c.CanProceed, c.Valid)
	}
}

// TestExtremeJumpEveryEquipment verifies that for every equipment class any
// positive jump above twice its threshold is a non-overridable error.
func TestExtremeJumpEveryEquipment(t *testing.T) {
	pol := policy.Default()
	for _, eq := range models.Equipments {
		limit := 2 * pol.Rule(eq).SafeJump
		for _, extra := range []float64{0.5, 1, 10, 100} {
			spec := models.ExerciseSpec{Equipment: eq, RepRange: models.RepRange{Min: 8, Max: 12}}
			c := CheckSet(SetInput{Current: set(100+limit+extra, 8), Last: ptr(set(100, 8)), Spec: spec}, pol)
			f := c.Find(CodeWeightJumpExtreme)
			if f == nil || f.Overridable || f.Level != LevelError {
				t.Errorf("%s jump %v: finding = %+v", eq, limit+extra, f)
			}
		}
	}
}

// TestModerateWeightJump verifies a jump between the threshold and twice it
// is an overridable warning.
func TestModerateWeightJump(t *testing.T) {
	c := CheckSet(SetInput{Current: set(215, 5), Last: ptr(set(200, 5)), Spec: barbellSpec()}, policy.Default())
	f := c.Find(CodeWeightJump)
	if f == nil || !f.Overridable || f.Level != LevelWarning {
		t.Fatalf("finding = %+v, want overridable warning", f)
	}
	if c.Severity != SeverityCaution || !c.CanProceed || !c.RequiresAcknowledgment() {
		t.Errorf("check = %+v, want caution that needs acknowledgment", c)
	}
}

// TestSmallAndNegativeJumps verifies in-threshold and negative jumps are silent.
func TestSmallAndNegativeJumps(t *testing.T) {
	for _, w := range []float64{200, 205, 210, 190} {
		c := CheckSet(SetInput{Current: set(w, 5), Last: ptr(set(200, 5)), Spec: barbellSpec()}, policy.Default())
		if c.Has(CodeWeightJump) || c.Has(CodeWeightJumpExtreme) {
			t.Errorf("weight %v flagged as jump: %+v", w, c.Findings)
		}
	}
}

// TestRepJump verifies the warning and error rep thresholds.
func TestRepJump(t *testing.T) {
	tests := []struct {
		reps int
		want Code
	}{
		{9, ""},
		{10, CodeRepJump},
		{11, CodeRepJump},
		{12, CodeRepJumpExtreme},
	}
	for _, tt := range tests {
		c := CheckSet(SetInput{Current: set(100, tt.reps), Last: ptr(set(100, 6)), Spec: barbellSpec()}, policy.Default())
		switch tt.want {
		case "":
			if c.Has(CodeRepJump) || c.Has(CodeRepJumpExtreme) {
				t.Errorf("reps %d: unexpected rep finding %+v", tt.reps, c.Findings)
			}
		case CodeRepJumpExtreme:
			f := c.Find(CodeRepJumpExtreme)
			if f == nil || f.Overridable {
				t.Errorf("reps %d: finding = %+v, want non-overridable error", tt.reps, f)
			}
		default:
			if !c.Has(tt.want) {
				t.Errorf("reps %d: missing %s", tt.reps, tt.want)
			}
		}
	}
}

// TestRegression verifies both-down and volume-drop warnings.
func TestRegression(t *testing.T) {
	c := CheckSet(SetInput{Current: set(190, 4), Last: ptr(set(200, 5)), Spec: barbellSpec()}, policy.Default())
	if !c.Has(CodeRegression) {
		t.Errorf("missing regression warning: %+v", c.Findings)
	}
	// 760 vs 1000 is a 24% drop
	if !c.Has(CodeVolumeDrop) {
		t.Errorf("missing volume drop warning: %+v", c.Findings)
	}
	if !c.CanProceed {
		t.Error("regression warnings must be overridable")
	}

	// Same weight, fewer reps: 200x4 vs 200x5 is a 20% drop, not more.
	c = CheckSet(SetInput{Current: set(200, 4), Last: ptr(set(200, 5)), Spec: barbellSpec()}, policy.Default())
	if c.Has(CodeRegression) || c.Has(CodeVolumeDrop) {
		t.Errorf("unexpected regression findings: %+v", c.Findings)
	}
}

// TestVelocity verifies the monthly gain band: above max is a note, above
// extreme is a warning, and no sample means no finding.
func TestVelocity(t *testing.T) {
	pol := policy.Default()
	band := pol.Rule(models.EquipmentBarbell).MonthlyGain

	c := CheckSet(SetInput{Current: set(205, 5), Last: ptr(set(200, 5)), Spec: barbellSpec(),
		WeightFourWeeksAgo: ptr(205 - band.Max - 5)}, pol)
	if f := c.Find(CodeVelocityHigh); f == nil || f.Level != LevelInfo {
		t.Errorf("above max: finding = %+v, want info", f)
	}
	if c.Severity != SeveritySafe {
		t.Errorf("info-only check severity = %s, want safe", c.Severity)
	}

	c = CheckSet(SetInput{Current: set(205, 5), Last: ptr(set(200, 5)), Spec: barbellSpec(),
		WeightFourWeeksAgo: ptr(205 - band.Extreme - 5)}, pol)
	if f := c.Find(CodeVelocityExtreme); f == nil || f.Level != LevelWarning {
		t.Errorf("above extreme: finding = %+v, want warning", f)
	}

	c = CheckSet(SetInput{Current: set(205, 5), Last: ptr(set(200, 5)), Spec: barbellSpec()}, pol)
	if c.Has(CodeVelocityHigh) || c.Has(CodeVelocityExtreme) {
		t.Errorf("velocity finding without a sample: %+v", c.Findings)
	}
}

// TestDeloadNeed verifies the plateau-driven warning and the long-gap reminder.
func TestDeloadNeed(t *testing.T) {
	base := SetInput{Current: set(200, 5), Last: ptr(set(200, 5)), Spec: barbellSpec()}

	in := base
	in.RecentPlateauCount, in.WeeksSinceLastDeload = 3, 4
	if c := CheckSet(in, policy.Default()); !c.Has(CodeDeloadNeeded) {
		t.Errorf("plateau 3, 4 weeks: missing deload warning: %+v", c.Findings)
	}

	in = base
	in.RecentPlateauCount, in.WeeksSinceLastDeload = 3, 3
	if c := CheckSet(in, policy.Default()); c.Has(CodeDeloadNeeded) {
		t.Errorf("plateau 3, 3 weeks: unexpected deload warning")
	}

	in = base
	in.WeeksSinceLastDeload = 8
	c := CheckSet(in, policy.Default())
	if f := c.Find(CodeDeloadReminder); f == nil || f.Level != LevelInfo {
		t.Errorf("8 weeks: finding = %+v, want info reminder", f)
	}
}

// TestCheckSetIsDeterministic verifies identical input produces
// byte-identical output.
func TestCheckSetIsDeterministic(t *testing.T) {
	in := SetInput{
		Current:              set(240, 12),
		Last:                 ptr(set(200, 5)),
		Spec:                 barbellSpec(),
		RecentPlateauCount:   4,
		WeeksSinceLastDeload: 9,
		WeightFourWeeksAgo:   ptr(150.0),
	}
	a, err := json.Marshal(CheckSet(in, policy.Default()))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(CheckSet(in, policy.Default()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("outputs differ:\n%s\n%s", a, b)
	}
}
