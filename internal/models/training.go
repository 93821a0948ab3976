package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Equipment is the equipment class an exercise is performed with.
type Equipment string

const (
	EquipmentBarbell    Equipment = "barbell"
	EquipmentDumbbell   Equipment = "dumbbell"
	EquipmentBodyweight Equipment = "bodyweight"
	EquipmentCable      Equipment = "cable"
)

// Equipments lists every known equipment class.
var Equipments = []Equipment{EquipmentBarbell, EquipmentDumbbell, EquipmentBodyweight, EquipmentCable}

// Valid reports whether e is a known equipment class.
func (e Equipment) Valid() bool {
	switch e {
	case EquipmentBarbell, EquipmentDumbbell, EquipmentBodyweight, EquipmentCable:
		return true
	}
	return false
}

// ParseEquipment maps free-form equipment labels (as found in exports and
// content tables) to an equipment class. Unknown labels map to barbell.
func ParseEquipment(label string) Equipment {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "dumbbell"), strings.Contains(l, "kettlebell"):
		return EquipmentDumbbell
	case strings.Contains(l, "bodyweight"), strings.Contains(l, "body weight"):
		return EquipmentBodyweight
	case strings.Contains(l, "cable"), strings.Contains(l, "machine"), strings.Contains(l, "band"):
		return EquipmentCable
	default:
		return EquipmentBarbell
	}
}

// TrainingMethod is how the sets of an exercise are structured.
type TrainingMethod string

const (
	// MethodRPT is reverse pyramid training: heaviest set first, then lighter
	// sets at higher rep targets.
	MethodRPT TrainingMethod = "rpt"
	// MethodAscending starts light and adds weight each set at a constant rep range.
	MethodAscending TrainingMethod = "ascending"
	// MethodCluster is one activation set followed by short-rest mini-sets.
	MethodCluster TrainingMethod = "cluster"
	// MethodStraight is plain straight sets under double progression.
	MethodStraight TrainingMethod = "straight"
)

// Valid reports whether m is a known training method.
func (m TrainingMethod) Valid() bool {
	switch m {
	case MethodRPT, MethodAscending, MethodCluster, MethodStraight:
		return true
	}
	return false
}

// IsLadder reports whether the method derives later sets from the anchor set.
func (m TrainingMethod) IsLadder() bool {
	return m == MethodRPT
}

// TrainingMode selects between the standard phase program and MEGA.
type TrainingMode string

const (
	ModeStandard TrainingMode = "standard"
	ModeMega     TrainingMode = "mega"
)

// RepRange is an inclusive target rep range.
type RepRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether reps falls inside the range.
func (r RepRange) Contains(reps int) bool {
	return reps >= r.Min && reps <= r.Max
}

// RestBounds is the recommended rest window between sets.
type RestBounds struct {
	MinSeconds int `json:"min_seconds" yaml:"min_seconds"`
	MaxSeconds int `json:"max_seconds" yaml:"max_seconds"`
}

// ExerciseSpec is the static configuration of an exercise. It is owned by the
// content table and only ever read by the engine.
type ExerciseSpec struct {
	Name        string         `json:"name" yaml:"name"`
	MuscleGroup string         `json:"muscle_group" yaml:"muscle_group"`
	Method      TrainingMethod `json:"method" yaml:"method"`
	Equipment   Equipment      `json:"equipment" yaml:"equipment"`
	RepRange    RepRange       `json:"rep_range" yaml:"rep_range"`
	// SetRepRanges holds one range per set position for ladder methods.
	SetRepRanges []RepRange `json:"set_rep_ranges,omitempty" yaml:"set_rep_ranges,omitempty"`
	// Increment overrides the equipment default when positive.
	Increment float64    `json:"increment,omitempty" yaml:"increment,omitempty"`
	Rest      RestBounds `json:"rest" yaml:"rest"`
	Indicator bool       `json:"indicator,omitempty" yaml:"indicator,omitempty"`
}

// AnchorRange returns the rep range of the first working set.
func (s ExerciseSpec) AnchorRange() RepRange {
	if len(s.SetRepRanges) > 0 {
		return s.SetRepRanges[0]
	}
	return s.RepRange
}

// SetPerformance is one logged set.
type SetPerformance struct {
	SetNumber   int     `json:"set_number"`
	Weight      float64 `json:"weight"`
	Reps        int     `json:"reps"`
	Completed   bool    `json:"completed"`
	IsWarmup    bool    `json:"is_warmup"`
	RestSeconds *int    `json:"rest_seconds,omitempty"`
	TargetReps  string  `json:"target_reps,omitempty"`
}

// Volume is weight × reps.
func (s SetPerformance) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// ProgramState is the caller-owned program position.
type ProgramState struct {
	Phase          int          `json:"phase"`
	Week           int          `json:"week"`
	StartDate      time.Time    `json:"start_date"`
	Mode           TrainingMode `json:"mode"`
	Specialization string       `json:"specialization,omitempty"`
}

// DeloadState is the caller-owned deload toggle.
type DeloadState struct {
	Active          bool       `json:"active"`
	ReductionPct    float64    `json:"reduction_pct"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// ExerciseLog is one persisted set together with the context it was logged in.
type ExerciseLog struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	UserID    int            `json:"user_id"`
	Date      time.Time      `json:"date"`
	Exercise  string         `json:"exercise"`
	Method    TrainingMethod `json:"method"`
	Phase     int            `json:"phase"`
	Mode      TrainingMode   `json:"mode"`
	Set       SetPerformance `json:"set"`
}

// WorkoutSession is one logged training day.
type WorkoutSession struct {
	ID     uuid.UUID    `json:"id"`
	UserID int          `json:"user_id"`
	Date   time.Time    `json:"date"`
	Slot   int          `json:"slot"`
	Phase  int          `json:"phase"`
	Week   int          `json:"week"`
	Mode   TrainingMode `json:"mode"`
	Name   string       `json:"name,omitempty"`
}

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSet is returned when a logged set is already stored for the
// same date, exercise and set number. The whole session is rejected.
var ErrDuplicateSet = errors.New("set already logged for this date")

// ImportLog records the outcome of one history import.
type ImportLog struct {
	ID               int64     `json:"id"`
	UserID           int       `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	SessionsReceived int       `json:"sessions_received"`
	SetsReceived     int       `json:"sets_received"`
	SetsInserted     int64     `json:"sets_inserted"`
	DurationMs       *int      `json:"duration_ms"`
	ErrorMessage     *string   `json:"error_message"`
}
