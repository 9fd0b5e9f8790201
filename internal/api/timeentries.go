package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/offgridlab/offgrid-core/internal/timetrack"
)

// writeTimetrackError maps timetrack errors onto HTTP responses.
func (s *Server) writeTimetrackError(w http.ResponseWriter, op string, err error) {
	var verr *timetrack.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr.Error())
	case errors.Is(err, timetrack.ErrEntryNotFound):
		writeNotFound(w, "Time entry not found")
	case errors.Is(err, timetrack.ErrTimerStopped):
		writeBadRequest(w, "Timer already stopped")
	default:
		s.logger.Error("time entry operation failed", "op", op, "error", err)
		writeInternalError(w, "failed to "+op)
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tracker.List(r.Context())
	if err != nil {
		s.writeTimetrackError(w, "list time entries", err)
		return
	}
	if entries == nil {
		entries = []timetrack.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req timetrack.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	e, err := s.tracker.Create(r.Context(), req)
	if err != nil {
		s.writeTimetrackError(w, "create time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeTimetrackError(w, "get time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleUpdateEntry serves both PUT and PATCH; absent fields are unchanged.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req timetrack.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	e, err := s.tracker.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeTimetrackError(w, "update time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeTimetrackError(w, "delete time entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req timetrack.StartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	e, err := s.tracker.StartTimer(r.Context(), req)
	if err != nil {
		s.writeTimetrackError(w, "start timer", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	e, err := s.tracker.StopTimer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeTimetrackError(w, "stop timer", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleActiveTimers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tracker.Active(r.Context())
	if err != nil {
		s.writeTimetrackError(w, "list active timers", err)
		return
	}
	if entries == nil {
		entries = []timetrack.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEntryStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Statistics(r.Context())
	if err != nil {
		s.writeTimetrackError(w, "compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
