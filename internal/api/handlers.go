package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/automationd/internal/jobsmanager"
	"github.com/mattjoyce/automationd/internal/wire"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	workspace := chi.URLParam(r, "workspace")

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Workspace = workspace

	status, detail := s.scheduler.Schedule(jobsmanager.ScheduleRequest{
		User:      req.User,
		Source:    req.Source,
		Workspace: req.Workspace,
		Name:      req.Name,
		Mode:      req.Mode,
		At:        req.At,
	})
	if status != wire.OK {
		s.writeStatusError(w, status, detail)
		return
	}
	s.writeJSON(w, http.StatusCreated, ScheduleResponse{JobID: detail})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	workspace := chi.URLParam(r, "workspace")
	s.writeJSON(w, http.StatusOK, s.scheduler.List(workspace))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var req DeleteRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	status, detail := s.scheduler.Delete(jobID, req.User)
	if status != wire.OK {
		s.writeStatusError(w, status, detail)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var offset int64
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	lines, next, err := s.logs.ReadLogs(jobID, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, LogsResponse{Lines: lines, Offset: next})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, detail string) {
	s.writeJSON(w, code, ErrorResponse{Status: http.StatusText(code), Detail: detail})
}

func (s *Server) writeStatusError(w http.ResponseWriter, status wire.Status, detail string) {
	code := http.StatusInternalServerError
	switch status {
	case wire.Failed:
		code = http.StatusBadRequest
	case wire.Forbidden:
		code = http.StatusForbidden
	case wire.NotFound:
		code = http.StatusNotFound
	case wire.AlreadyExists:
		code = http.StatusPreconditionFailed
	}
	s.writeJSON(w, code, ErrorResponse{Status: status.String(), Detail: detail})
}
