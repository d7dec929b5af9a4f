package http

import (
	"net/http"
	"strings"
	"time"

	"tradebook/internal/core"
)

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listMoods(w, r)
	case http.MethodPost:
		s.createMood(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(v) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = t
	}

	moods, err := s.moods.ListMoods(r.Context(), from, to)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Mood list error", "error", err)
		writeDomainError(w, err)
		return
	}
	if moods == nil {
		moods = []core.MoodEntry{}
	}
	writeJSON(w, http.StatusOK, moods)
}

func (s *Server) createMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := req.toMoodEntry()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := entry.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	moodID, err := s.moods.CreateMood(r.Context(), entry)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Mood create error", "error", err, "mood", entry.Mood)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, idBody{ID: moodID})
}

func (s *Server) handleMoodByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	moodID := strings.TrimPrefix(r.URL.Path, "/api/moods/")
	if moodID == "" || strings.Contains(moodID, "/") {
		writeError(w, http.StatusBadRequest, "missing mood id")
		return
	}

	if err := s.moods.DeleteMood(r.Context(), moodID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
