package http

import (
	"net/http"
	"strings"

	"tradebook/internal/core"
)

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trade, err := req.toRecord()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.createRecord(w, r, trade)
}

func (s *Server) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	s.handleCashFlow(w, r, core.KindWithdrawal)
}

func (s *Server) handleDeposits(w http.ResponseWriter, r *http.Request) {
	s.handleCashFlow(w, r, core.KindDeposit)
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req cashFlowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := req.toRecord(kind)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.createRecord(w, r, record)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, record core.Record) {
	if err := record.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	recordID, err := s.writer.CreateRecord(r.Context(), record)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Record create error",
			"error", err, "kind", record.Kind, "symbol", record.Symbol)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusCreated, idBody{ID: recordID})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filter, err := parseRecordFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.reader.ListRecords(r.Context(), filter)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Record list error", "error", err)
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	records, err := s.reader.ListArchive(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Archive list error", "error", err)
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleRecordByID serves /api/records/{id} and /api/records/{id}/restore.
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/records/")
	recordID, action, _ := strings.Cut(rest, "/")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}

	switch {
	case action == "restore":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		s.restoreRecord(w, r, recordID)
	case action != "":
		writeError(w, http.StatusNotFound, "not found")
	default:
		switch r.Method {
		case http.MethodGet:
			s.getRecord(w, r, recordID)
		case http.MethodPut:
			s.updateRecord(w, r, recordID)
		case http.MethodDelete:
			s.deleteRecord(w, r, recordID)
		default:
			methodNotAllowed(w, "GET, PUT, DELETE")
		}
	}
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	record, err := s.reader.GetRecord(r.Context(), recordID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	existing, err := s.reader.GetRecord(r.Context(), recordID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var record core.Record
	switch existing.Kind {
	case core.KindTrade:
		var req tradeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err = req.toRecord()
	default:
		var req cashFlowRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err = req.toRecord(existing.Kind)
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	record.ID = recordID
	if err := s.writer.UpdateRecord(r.Context(), record); err != nil {
		s.log.ErrorContext(r.Context(), "Record update error", "error", err, "id", recordID)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusOK, idBody{ID: recordID})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	if err := s.writer.DeleteRecord(r.Context(), recordID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restoreRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	if err := s.writer.RestoreRecord(r.Context(), recordID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusOK, idBody{ID: recordID})
}
