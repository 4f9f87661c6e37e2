package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"qledger/ledger"
)

func HandleListBlocks(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	blocks, err := l.Blocks()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// HandleBlockByIndex serves /api/blocks/{index}.
func HandleBlockByIndex(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid block index: %w", err))
		return
	}

	block, err := l.Block(index)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// HandleBlockByHash serves /api/blocks/hash/{hash}.
func HandleBlockByHash(w http.ResponseWriter, r *http.Request, l *ledger.Ledger) {
	hash := mux.Vars(r)["hash"]
	if len(hash) != 64 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid block hash format (must be 64 hex characters)"))
		return
	}

	block, err := l.BlockByHash(hash)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}
