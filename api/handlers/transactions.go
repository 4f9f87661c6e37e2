package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"qledger/blockchain"
	"qledger/ledger"
)

type SubmitResponse struct {
	Status    string            `json:"status"`
	Receipt   string            `json:"receipt"`
	Block     *blockchain.Block `json:"block"`
	Protocol  string            `json:"protocol,omitempty"`
	Key       string            `json:"key,omitempty"`
	ErrorRate float64           `json:"error_rate"`
	Suspected bool              `json:"eavesdrop_suspected"`
}

// HandleTransactions wraps the posted transaction in a candidate at the
// current height and runs it through admission.
func HandleTransactions(w http.ResponseWriter, r *http.Request, l *ledger.Ledger, log *zap.Logger) {
	var tx blockchain.Transaction
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON format: %w", err))
		return
	}
	if tx.Sender == "" || tx.Recipient == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("sender and recipient are required"))
		return
	}

	height, err := l.Height()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	candidate := blockchain.NewBlock(blockchain.BlockCreationParams{Index: height, Transaction: &tx})
	receipt, err := l.AddBlock(r.Context(), candidate)
	if err != nil {
		log.Debug("transaction not admitted", zap.Uint64("index", height), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Status:    "admitted",
		Receipt:   receipt.ID.String(),
		Block:     receipt.Block,
		Protocol:  receipt.Protocol,
		Key:       bitString(receipt.Key),
		ErrorRate: receipt.ErrorRate,
		Suspected: receipt.EavesdropSuspected,
	})
}

func bitString(bits []uint8) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		sb.WriteByte('0' + b)
	}
	return sb.String()
}
