// Package history derives the guardrail inputs from already-fetched
// exercise logs and session dates. Log slices are ordered most recent first,
// the way the store returns them.
package history

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/models"
)

// Anchor is the first working set of one session of an exercise.
type Anchor struct {
	Date      time.Time             `json:"date"`
	SessionID uuid.UUID             `json:"session_id"`
	Method    models.TrainingMethod `json:"method"`
	Phase     int                   `json:"phase"`
	Mode      models.TrainingMode   `json:"mode"`
	Set       models.SetPerformance `json:"set"`
}

// Anchors groups logs by session and keeps the lowest-numbered working set
// of each, preserving the most-recent-first order. Sessions with only warmup
// sets are skipped.
func Anchors(logs []models.ExerciseLog) []Anchor {
	var out []Anchor
	index := map[string]int{}
	for _, l := range logs {
		if l.Set.IsWarmup {
			continue
		}
		key := l.SessionID.String()
		if l.SessionID == uuid.Nil {
			key = l.Date.Format(time.DateOnly)
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, anchorOf(l))
			continue
		}
		if l.Set.SetNumber < out[i].Set.SetNumber {
			out[i] = anchorOf(l)
		}
	}
	return out
}

// OutsideDeload drops the logs dated inside the deload window of d, from
// StartedAt through LastCompletedAt, or through any later date while the
// deload is still active. Those sets were lifted at a reduced weight and
// must not become the baseline for progression.
func OutsideDeload(logs []models.ExerciseLog, d models.DeloadState) []models.ExerciseLog {
	if d.StartedAt == nil {
		return logs
	}
	start := dayOf(*d.StartedAt)
	var end time.Time
	switch {
	case d.Active:
	case d.LastCompletedAt != nil && !d.LastCompletedAt.Before(start):
		end = dayOf(*d.LastCompletedAt)
	default:
		return logs
	}
	out := make([]models.ExerciseLog, 0, len(logs))
	for _, l := range logs {
		ld := dayOf(l.Date)
		if !ld.Before(start) && (end.IsZero() || !ld.After(end)) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func anchorOf(l models.ExerciseLog) Anchor {
	return Anchor{Date: l.Date, SessionID: l.SessionID, Method: l.Method, Phase: l.Phase, Mode: l.Mode, Set: l.Set}
}

// Last returns the most recent anchor set, or nil.
func Last(anchors []Anchor) *models.SetPerformance {
	if len(anchors) == 0 {
		return nil
	}
	s := anchors[0].Set
	return &s
}

// PlateauCount counts the most recent sessions in a row that moved neither
// weight nor reps forward versus the session before each.
func PlateauCount(anchors []Anchor) int {
	n := 0
	for i := 0; i+1 < len(anchors); i++ {
		if progressed(anchors[i].Set, anchors[i+1].Set) {
			break
		}
		n++
	}
	return n
}

func progressed(cur, prev models.SetPerformance) bool {
	if cur.Weight != prev.Weight {
		return cur.Weight > prev.Weight
	}
	return cur.Reps > prev.Reps
}

// WeightAround returns the anchor weight logged closest to target, within
// toleranceDays either side. It returns nil when no session qualifies.
func WeightAround(anchors []Anchor, target time.Time, toleranceDays int) *float64 {
	best := -1
	bestDist := toleranceDays + 1
	for i, a := range anchors {
		d := guardrail.DaysBetween(a.Date, target)
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil
	}
	w := anchors[best].Set.Weight
	return &w
}

// ConsecutiveModeWeeks counts calendar weeks in a row, ending at the week of
// asOf, in which the exercise was logged under mode. A week with nothing
// logged yet at asOf is skipped so a mid-week check still sees the streak.
func ConsecutiveModeWeeks(anchors []Anchor, mode models.TrainingMode, asOf time.Time, weekStart time.Weekday) int {
	var dates []time.Time
	for _, a := range anchors {
		if a.Mode == mode {
			dates = append(dates, a.Date)
		}
	}
	return ConsecutiveWeeks(dates, asOf, weekStart, nil)
}

// OverloadWeeks counts the training weeks in a row up to asOf since the last
// completed deload.
func OverloadWeeks(sessions []time.Time, lastDeload *time.Time, asOf time.Time, weekStart time.Weekday) int {
	return ConsecutiveWeeks(sessions, asOf, weekStart, lastDeload)
}

// ConsecutiveWeeks counts calendar weeks in a row holding at least one date,
// walking back from the week of asOf. Dates on or before stop are ignored.
func ConsecutiveWeeks(dates []time.Time, asOf time.Time, weekStart time.Weekday, stop *time.Time) int {
	weeks := map[time.Time]bool{}
	for _, d := range dates {
		if stop != nil && guardrail.DaysBetween(*stop, d) <= 0 {
			continue
		}
		if guardrail.DaysBetween(d, asOf) < 0 {
			continue
		}
		weeks[guardrail.WeekStartOf(d, weekStart)] = true
	}
	if len(weeks) == 0 {
		return 0
	}

	w := guardrail.WeekStartOf(asOf, weekStart)
	if !weeks[w] {
		w = w.AddDate(0, 0, -7)
	}
	n := 0
	for weeks[w] {
		n++
		w = w.AddDate(0, 0, -7)
	}
	return n
}

// PriorMethod returns the method and phase of the most recent anchor when it
// was logged on or after since, the start of the current phase. Older history
// belongs to an earlier rotation and locks nothing.
func PriorMethod(anchors []Anchor, since time.Time) (models.TrainingMethod, int, bool) {
	if len(anchors) == 0 || dayOf(anchors[0].Date).Before(dayOf(since)) {
		return "", 0, false
	}
	return anchors[0].Method, anchors[0].Phase, true
}

// WeeksSince returns the whole weeks from t to asOf. When t is nil it falls
// back to the earliest of the given dates, and to 0 when there are none.
func WeeksSince(t *time.Time, asOf time.Time, history []time.Time) int {
	var from time.Time
	switch {
	case t != nil:
		from = *t
	case len(history) > 0:
		from = slices.MinFunc(history, time.Time.Compare)
	default:
		return 0
	}
	days := guardrail.DaysBetween(from, asOf)
	if days < 0 {
		return 0
	}
	return days / 7
}

// Dates returns the anchor dates.
func Dates(anchors []Anchor) []time.Time {
	out := make([]time.Time, len(anchors))
	for i, a := range anchors {
		out[i] = a.Date
	}
	return out
}
