package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"qledger/blockchain"
	"qledger/blockchain/store"
	"qledger/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  err.Error(),
	})
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		outOfRange blockchain.IndexOutOfRangeError
		rejected   ledger.AdmissionRejectedError
		mismatch   ledger.IndexMismatchError
		keyErr     ledger.KeyAgreementError
		exhausted  blockchain.SearchExhaustedError
	)
	switch {
	case errors.As(err, &outOfRange), errors.Is(err, store.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.As(err, &rejected), errors.As(err, &mismatch):
		return http.StatusConflict
	case errors.As(err, &keyErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
