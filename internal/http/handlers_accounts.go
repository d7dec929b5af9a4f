package http

import (
	"net/http"

	"tradebook/internal/core"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAccounts(w, r)
	case http.MethodPost:
		s.createAccount(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Account list error", "error", err)
		writeDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account := req.toAccount()
	if err := account.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	accountID, err := s.accounts.CreateAccount(r.Context(), account)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Account create error", "error", err, "name", account.Name)
		writeDomainError(w, err)
		return
	}

	// Initial balance feeds equity and ROI.
	s.invalidateStats()
	writeJSON(w, http.StatusCreated, idBody{ID: accountID})
}
