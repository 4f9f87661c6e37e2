// Package testing generates sample transactions and blocks for demos and
// tests.
package testing

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand"

	"qledger/blockchain"
	"qledger/ledger"
)

// SampleTransaction is the i-th transaction of the sample series:
// sender_i pays recipient_i i*100.
func SampleTransaction(i int) blockchain.Transaction {
	return blockchain.Transaction{
		Sender:    fmt.Sprintf("sender_%d", i),
		Recipient: fmt.Sprintf("recipient_%d", i),
		Amount:    uint64(i) * 100,
	}
}

var names = []string{"Alice", "Bob", "Carol", "Dave", "Eve", "Frank", "Grace", "Heidi"}

// GenerateRandomTransactions creates count transfers between distinct named
// parties with amounts in [1, maxAmount].
func GenerateRandomTransactions(rng *mathrand.Rand, count int, maxAmount uint64) []blockchain.Transaction {
	if maxAmount == 0 {
		maxAmount = 1
	}
	txs := make([]blockchain.Transaction, count)
	for i := range txs {
		from := rng.Intn(len(names))
		to := (from + 1 + rng.Intn(len(names)-1)) % len(names)
		txs[i] = blockchain.Transaction{
			Sender:    names[from],
			Recipient: names[to],
			Amount:    uint64(rng.Int63n(int64(maxAmount))) + 1,
		}
	}
	return txs
}

// NewCandidate builds a candidate block for index carrying tx, stamped now.
func NewCandidate(index uint64, tx blockchain.Transaction) *blockchain.Block {
	return blockchain.NewBlock(blockchain.BlockCreationParams{
		Index:       index,
		Transaction: &tx,
	})
}

// SampleResult summarises an AddSampleBlocks run.
type SampleResult struct {
	Receipts []*ledger.Receipt
	Rejected []ledger.AdmissionRejectedError
}

// AddSampleBlocks submits count sample transactions, each as a candidate at
// the current height. Rejected candidates are recorded and skipped; any other
// error stops the run.
func AddSampleBlocks(ctx context.Context, l *ledger.Ledger, count int) (*SampleResult, error) {
	txs := make([]blockchain.Transaction, count)
	for i := range txs {
		txs[i] = SampleTransaction(i + 1)
	}
	return AddTransactions(ctx, l, txs)
}

// AddTransactions submits one candidate block per transaction.
func AddTransactions(ctx context.Context, l *ledger.Ledger, txs []blockchain.Transaction) (*SampleResult, error) {
	result := &SampleResult{}
	for _, tx := range txs {
		height, err := l.Height()
		if err != nil {
			return result, err
		}

		receipt, err := l.AddBlock(ctx, NewCandidate(height, tx))
		var rejected ledger.AdmissionRejectedError
		switch {
		case errors.As(err, &rejected):
			result.Rejected = append(result.Rejected, rejected)
		case err != nil:
			return result, err
		default:
			result.Receipts = append(result.Receipts, receipt)
		}
	}
	return result, nil
}
