package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"qledger/blockchain"
	"qledger/tamper"
)

type TamperResponse struct {
	Run               string                         `json:"run"`
	Index             uint64                         `json:"index"`
	Pattern           string                         `json:"pattern"`
	Attempts          uint64                         `json:"attempts"`
	ForgedHash        string                         `json:"forged_hash"`
	Exhausted         bool                           `json:"exhausted"`
	Detected          bool                           `json:"detected"`
	Violation         *blockchain.IntegrityViolation `json:"violation,omitempty"`
	ValidAfterRestore bool                           `json:"valid_after_restore"`
}

// HandleTamper serves POST /api/tamper/{index}.
func HandleTamper(w http.ResponseWriter, r *http.Request, sim *tamper.Simulator) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid block index: %w", err))
		return
	}

	report, err := sim.Run(r.Context(), index)
	if report == nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err != nil && !errors.As(err, new(blockchain.SearchExhaustedError)) {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, TamperResponse{
		Run:               report.ID.String(),
		Index:             report.Index,
		Pattern:           report.Pattern.String(),
		Attempts:          report.Attempts,
		ForgedHash:        report.ForgedHash,
		Exhausted:         report.Exhausted,
		Detected:          report.Detected(),
		Violation:         report.Violation,
		ValidAfterRestore: report.ValidAfterRestore,
	})
}
