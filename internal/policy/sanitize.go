package policy

import (
	"math"
	"strconv"
	"strings"
)

// Weight normalizes a weight value: negative, NaN and infinite inputs become 0.
func Weight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// Reps normalizes a rep count: negative values become 0.
func Reps(r int) int {
	if r < 0 {
		return 0
	}
	return r
}

// Percent clamps a percentage into [0, 100].
func Percent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ParseWeight parses a form value into a weight. Empty, malformed or
// negative input yields 0 rather than an error, so half-filled forms never
// fail. A decimal comma is accepted.
func ParseWeight(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Weight(v)
}

// ParseReps parses a form value into a rep count, yielding 0 for bad input.
func ParseReps(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// "8.0" from spreadsheet exports
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		// Clamped first: converting an out-of-range float is undefined.
		v = int(min(max(f, 0), math.MaxInt32))
	}
	return Reps(v)
}
