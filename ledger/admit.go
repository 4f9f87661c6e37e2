package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qledger/admission"
	"qledger/blockchain"
	"qledger/metrics"
	"qledger/qkd"
	"qledger/streamcipher"
)

// Receipt describes an admitted block. Key is the shared secret the payload
// was encrypted under; it is not stored anywhere else.
type Receipt struct {
	ID       uuid.UUID
	Block    *blockchain.Block
	Decision admission.Decision

	Protocol           string
	Key                qkd.Key
	ErrorRate          float64
	EavesdropSuspected bool
}

// Plaintext decrypts the admitted block's payload with the receipt's key.
func (r *Receipt) Plaintext() (blockchain.Payload, error) {
	return Decrypt(r.Block, r.Key)
}

// Decrypt reverses the payload encryption of an admitted block.
func Decrypt(block *blockchain.Block, key qkd.Key) (blockchain.Payload, error) {
	if block.Transactions.Kind != blockchain.PayloadOpaque {
		return blockchain.Payload{}, fmt.Errorf("block %d payload is %s, not ciphertext", block.Index, block.Transactions.Kind)
	}
	text, err := streamcipher.Apply(block.Transactions.Opaque, key)
	if err != nil {
		return blockchain.Payload{}, err
	}
	var payload blockchain.Payload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return blockchain.Payload{}, fmt.Errorf("decrypted payload of block %d: %w", block.Index, err)
	}
	return payload, nil
}

// AddBlock runs the admission pipeline on a copy of candidate and appends the
// result. On any error, including AdmissionRejectedError, the chain is left
// exactly as it was.
func (l *Ledger) AddBlock(ctx context.Context, candidate *blockchain.Block) (*Receipt, error) {
	if candidate == nil {
		return nil, errors.New("nil candidate block")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	receipt := &Receipt{ID: uuid.New()}
	log := l.log.With(zap.Uint64("index", candidate.Index), zap.Stringer("receipt", receipt.ID))

	// 1. Candidate must extend the current tip
	head, err := l.headLocked()
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	if candidate.Index != head.Index+1 {
		l.metrics.AdmissionFailed(metrics.ReasonIndex)
		return nil, IndexMismatchError{Index: candidate.Index, Height: head.Index + 1}
	}

	block := candidate.Clone()
	block.MiningAccuracy = nil

	// 2. Key agreement and payload encryption
	if l.cfg.Encrypt {
		if err := l.encrypt(block, receipt); err != nil {
			l.metrics.AdmissionFailed(metrics.ReasonKeyAgreement)
			log.Warn("key agreement failed", zap.Error(err))
			return nil, err
		}
		if receipt.EavesdropSuspected {
			log.Warn("key exchange error rate above detection threshold",
				zap.Float64("error_rate", receipt.ErrorRate),
				zap.Float64("threshold", l.cfg.DetectionThreshold),
			)
		}
	}

	// 3. Link to the tip; proof-of-work commits to the previous hash
	block.PreviousHash = head.Hash

	// 4. Admission gate
	decision, err := l.gate.Admit(ctx, block)
	if err != nil {
		var exhausted blockchain.SearchExhaustedError
		if errors.As(err, &exhausted) {
			l.metrics.AdmissionFailed(metrics.ReasonSearch)
		} else {
			l.metrics.AdmissionFailed(metrics.ReasonOracle)
		}
		log.Warn("admission gate failed", zap.String("gate", l.gate.Name()), zap.Error(err))
		return nil, fmt.Errorf("admission of block %d: %w", block.Index, err)
	}
	if decision.Accuracy != nil {
		l.metrics.OracleAccuracy(*decision.Accuracy)
	}
	if !decision.Accepted {
		rejected := AdmissionRejectedError{Index: block.Index, Pattern: decision.Pattern, Threshold: decision.Threshold}
		if decision.Accuracy != nil {
			rejected.Accuracy = *decision.Accuracy
		}
		l.metrics.AdmissionFailed(metrics.ReasonBelowThreshold)
		log.Warn("block rejected",
			zap.String("pattern", decision.Pattern),
			zap.Float64("accuracy", rejected.Accuracy),
			zap.Float64("threshold", rejected.Threshold),
		)
		return nil, rejected
	}
	if decision.Attempts > 0 {
		l.metrics.Mined(decision.Attempts)
	}

	// 5. Seal and append
	block.MiningAccuracy = decision.Accuracy
	block.Hash = blockchain.HashBlock(block)
	if err := l.store.AddBlock(block); err != nil {
		return nil, fmt.Errorf("failed to persist block to store: %w", err)
	}

	receipt.Block = block.Clone()
	receipt.Decision = decision
	l.metrics.BlockAdmitted(l.gate.Name(), block.Index+1)

	fields := []zap.Field{zap.String("hash", block.Hash), zap.String("gate", l.gate.Name())}
	if decision.Accuracy != nil {
		fields = append(fields, zap.Float64("accuracy", *decision.Accuracy))
	}
	if decision.Attempts > 0 {
		fields = append(fields, zap.Uint64("attempts", decision.Attempts))
	}
	log.Info("block added to chain", fields...)

	return receipt, nil
}

// encrypt replaces block's payload with its ciphertext under a fresh key.
func (l *Ledger) encrypt(block *blockchain.Block, receipt *Receipt) error {
	plaintext := block.Transactions.Canonical()

	length := l.cfg.KeyLength
	if length == 0 {
		length = len(plaintext) * 8
	}

	result := l.keys.Generate(length)
	receipt.Protocol = l.keys.Name()
	receipt.Key = result.Key
	receipt.ErrorRate = result.ErrorRate
	receipt.EavesdropSuspected = qkd.EavesdropDetected(result, l.cfg.DetectionThreshold)
	l.metrics.KeyAgreed(len(result.Key), result.ErrorRate)

	ciphertext, err := streamcipher.Apply(plaintext, result.Key)
	if err != nil {
		return KeyAgreementError{Index: block.Index, Protocol: l.keys.Name(), Cause: err}
	}
	block.Transactions = blockchain.OpaquePayload(ciphertext)
	return nil
}
