// Package ingest holds types shared by the history importers.
package ingest

// Result is the outcome of one import.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	SetsReceived     int   `json:"sets_received"`
	SetsInserted     int64 `json:"sets_inserted"`
	SetsSkipped      int64 `json:"sets_skipped"`

	// UnknownExercises are names not found in the exercise table. Their sets
	// are still stored under the exported name.
	UnknownExercises []string `json:"unknown_exercises,omitempty"`

	Message string `json:"message,omitempty"`
}

// Import log status values.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)
