package server

import (
	"net/http"
	"strconv"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/models"
)

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	v, err := s.advisor.Program(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResolveExercises(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.URL.Query().Get("slot"))
	if err != nil || slot <= 0 {
		writeError(w, http.StatusBadRequest, "slot must be a positive integer")
		return
	}
	sel, err := s.advisor.ResolveExercises(r.Context(), userIDFromContext(r), slot)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	v, err := s.advisor.AdvancePhase(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ModeRequest is the body of POST /api/v1/program/mode.
type ModeRequest struct {
	Mode           models.TrainingMode `json:"mode"`
	Specialization string              `json:"specialization"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := s.advisor.SetMode(r.Context(), userIDFromContext(r), req.Mode, req.Specialization)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeloadRequest is the body of POST /api/v1/deload/start. A zero pct uses
// the configured default.
type DeloadRequest struct {
	Pct float64 `json:"pct"`
}

func (s *Server) handleStartDeload(w http.ResponseWriter, r *http.Request) {
	var req DeloadRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := s.advisor.StartDeload(r.Context(), userIDFromContext(r), req.Pct)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleEndDeload(w http.ResponseWriter, r *http.Request) {
	v, err := s.advisor.EndDeload(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type sessionBody struct {
	advisor.SessionRequest
	Date string `json:"date"`
}

func (s *Server) handleLogSession(w http.ResponseWriter, r *http.Request) {
	var body sessionBody
	if !decode(w, r, &body) {
		return
	}
	req := body.SessionRequest
	var err error
	if req.Date, err = parseDate(body.Date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Exercises) == 0 {
		writeError(w, http.StatusBadRequest, "at least one exercise required")
		return
	}
	session, err := s.advisor.LogSession(r.Context(), userIDFromContext(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	out, err := s.advisor.Indicators(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
