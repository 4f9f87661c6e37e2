package blockchain

import (
	"time"
)

type BlockCreationParams struct {
	Index        uint64
	Transaction  *Transaction // nil for an empty payload
	PreviousHash string
	Timestamp    float64 // zero means now
}

// NewBlock builds a candidate block and computes its initial hash. The ledger
// relinks and rehashes it during admission, so PreviousHash is advisory.
func NewBlock(params BlockCreationParams) *Block {
	ts := params.Timestamp
	if ts == 0 {
		ts = Timestamp(time.Now())
	}

	payload := EmptyPayload()
	if params.Transaction != nil {
		payload = RecordPayload(*params.Transaction)
	}

	block := &Block{
		Index:        params.Index,
		Transactions: payload,
		Timestamp:    ts,
		PreviousHash: params.PreviousHash,
	}
	block.Hash = HashBlock(block)

	return block
}
