package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
	applog "tradebook/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

type idBody struct {
	ID string `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.ForComponent(applog.ComponentHTTP).Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps domain errors onto status codes: validation
// failures are 422, missing entities 404, everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidKind,
		core.ErrInvalidDate,
		core.ErrEmptySymbol,
		core.ErrInvalidSide,
		core.ErrInvalidQty,
		core.ErrInvalidAmount,
		core.ErrInvalidInstrument,
		core.ErrEmptyAccountName,
		core.ErrNegativeBalance,
		core.ErrInvalidMood,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
