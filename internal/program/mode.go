// Package program resolves which exercise list governs a session and
// computes the explicit program state transitions: phase advance, mode
// changes and the deload toggle. Everything here is pure; the caller reads
// and persists the state.
package program

import (
	"strings"

	"github.com/claude/liftguard/internal/models"
)

const (
	// PhaseCount is the number of phases in the standard rotation.
	PhaseCount = 3
	// MegaPhaseCount is the number of phases MEGA defines.
	MegaPhaseCount = 2
)

// Variant names the rule set chosen for a session.
type Variant string

const (
	VariantStandard       Variant = "standard"
	VariantMega           Variant = "mega"
	VariantSpecialization Variant = "specialization"
)

// Lists supplies the ordered exercise names for each rule set. It is backed
// by the static content table.
type Lists interface {
	StandardList(phase, slot int) []string
	MegaList(phase, slot int) []string
	SpecializationList(muscleGroup string, slot int) []string
}

// Selection is the outcome of Resolve. Variant says which rule set applies;
// Phase is the phase used for the lookup, after MEGA folding.
type Selection struct {
	Variant     Variant  `json:"variant"`
	Phase       int      `json:"phase"`
	Slot        int      `json:"slot"`
	MuscleGroup string   `json:"muscle_group,omitempty"`
	Exercises   []string `json:"exercises"`
}

// Resolve picks the exercise list for a session with strict priority: an
// active specialization beats MEGA, which beats the standard phase table.
// An empty specialization list is returned as is rather than falling back.
func Resolve(phase, slot int, mode models.TrainingMode, specialization string, lists Lists) Selection {
	phase = NormalizePhase(phase)
	group := strings.TrimSpace(specialization)

	var sel Selection
	switch {
	case group != "":
		sel = Selection{
			Variant:     VariantSpecialization,
			Phase:       phase,
			Slot:        slot,
			MuscleGroup: group,
			Exercises:   lists.SpecializationList(group, slot),
		}
	case mode == models.ModeMega:
		p := MegaPhase(phase)
		sel = Selection{Variant: VariantMega, Phase: p, Slot: slot, Exercises: lists.MegaList(p, slot)}
	default:
		sel = Selection{Variant: VariantStandard, Phase: phase, Slot: slot, Exercises: lists.StandardList(phase, slot)}
	}
	if sel.Exercises == nil {
		sel.Exercises = []string{}
	}
	return sel
}

// ResolveState is Resolve driven by a stored ProgramState.
func ResolveState(s models.ProgramState, slot int, lists Lists) Selection {
	return Resolve(s.Phase, slot, s.Mode, s.Specialization, lists)
}

// NormalizePhase maps any integer onto 1..PhaseCount. Non-positive phases
// become 1 and larger ones wrap.
func NormalizePhase(phase int) int {
	if phase < 1 {
		return 1
	}
	return (phase-1)%PhaseCount + 1
}

// MegaPhase folds a standard phase onto the two MEGA phases. Phases beyond
// MegaPhaseCount fold back to 1.
func MegaPhase(phase int) int {
	phase = NormalizePhase(phase)
	if phase > MegaPhaseCount {
		return 1
	}
	return phase
}
