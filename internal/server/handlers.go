package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/catalog"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
	"github.com/claude/liftguard/internal/program"
	"github.com/claude/liftguard/internal/progression"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	v, err := s.advisor.NextTarget(r.Context(), userIDFromContext(r), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	working := policy.ParseWeight(r.URL.Query().Get("working"))
	v, err := s.advisor.Warmup(r.Context(), userIDFromContext(r), chi.URLParam(r, "name"), working)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// LadderResponse is the body of GET /api/v1/rpt-ladder.
type LadderResponse struct {
	Exercise string               `json:"exercise"`
	Weight   float64              `json:"weight"`
	Reps     int                  `json:"reps"`
	Ladder   []progression.Target `json:"ladder"`
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exercise := q.Get("exercise")
	if exercise == "" {
		writeError(w, http.StatusBadRequest, "exercise parameter required")
		return
	}
	weight, reps := policy.ParseWeight(q.Get("weight")), policy.ParseReps(q.Get("reps"))
	ladder, err := s.advisor.Ladder(exercise, weight, reps)
	if err != nil {
		s.fail(w, err)
		return
	}
	if ladder == nil {
		ladder = []progression.Target{}
	}
	writeJSON(w, http.StatusOK, LadderResponse{Exercise: exercise, Weight: weight, Reps: reps, Ladder: ladder})
}

// DeloadResponse is the body of GET /api/v1/deload.
type DeloadResponse struct {
	Weight       float64 `json:"weight"`
	Pct          float64 `json:"pct"`
	DeloadWeight float64 `json:"deload_weight"`
}

func (s *Server) handleDeloadWeight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weight := policy.ParseWeight(q.Get("weight"))
	pct := s.advisor.DefaultDeloadPct()
	if p := q.Get("pct"); p != "" {
		pct = policy.Percent(parseFloat(p))
	}
	out, err := s.advisor.DeloadWeight(q.Get("exercise"), weight, pct)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeloadResponse{Weight: weight, Pct: pct, DeloadWeight: out})
}

// setCheckBody accepts a date-only or RFC 3339 date in place of the
// embedded time value.
type setCheckBody struct {
	advisor.SetRequest
	Date string `json:"date"`
}

func (s *Server) handleCheckSet(w http.ResponseWriter, r *http.Request) {
	var body setCheckBody
	if !decode(w, r, &body) {
		return
	}
	req := body.SetRequest
	var err error
	if req.Date, err = parseDate(body.Date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Exercise == "" {
		writeError(w, http.StatusBadRequest, "exercise required")
		return
	}
	check, err := s.advisor.CheckSet(r.Context(), userIDFromContext(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

type scheduleCheckBody struct {
	advisor.ScheduleRequest
	Date string `json:"date"`
}

func (s *Server) handleCheckSchedule(w http.ResponseWriter, r *http.Request) {
	var body scheduleCheckBody
	if !decode(w, r, &body) {
		return
	}
	req := body.ScheduleRequest
	var err error
	if req.Date, err = parseDate(body.Date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	check, err := s.advisor.CheckSchedule(r.Context(), userIDFromContext(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// fail maps domain errors to client errors and logs everything else.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownExercise):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, program.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDuplicateSet):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v, writing a 400 on failure. An empty body
// leaves v at its zero value.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// parseDate accepts "2006-01-02" or RFC 3339. Empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
