package handlers

import (
	"errors"
	"net/http"

	"qledger/blockchain"
	"qledger/ledger"
)

func HandleChainHeight(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	height, err := l.Height()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{
		"height": height,
	})
}

func HandleChainHead(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	block, err := l.Head()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type ValidationResponse struct {
	Valid     bool                           `json:"valid"`
	Violation *blockchain.IntegrityViolation `json:"violation,omitempty"`
	Error     string                         `json:"error,omitempty"`
}

// HandleValidate rehashes the chain. An invalid chain is still a 200; the
// verdict is in the body.
func HandleValidate(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	err := l.Validate()

	var violation blockchain.IntegrityViolation
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ValidationResponse{Valid: true})
	case errors.As(err, &violation):
		writeJSON(w, http.StatusOK, ValidationResponse{Violation: &violation, Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// HandlePrint renders the chain table as plain text.
func HandlePrint(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := l.Print(w); err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}
