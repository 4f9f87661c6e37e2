// Package ledger is the single-writer chain engine. It owns the block store,
// runs the admission pipeline (key agreement, stream cipher, gate, link and
// append) and validates the chain on demand.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"qledger/admission"
	"qledger/blockchain"
	"qledger/blockchain/store"
	"qledger/metrics"
	"qledger/qkd"
)

// Params wires a Ledger. Only Config is required.
type Params struct {
	Config Config

	// Store defaults to an in-memory store. The ledger closes it on Close.
	Store store.ChainStore
	// KeyAgreement is required when Config.Encrypt is set.
	KeyAgreement qkd.KeyAgreement
	// Gate overrides the gate derived from Config. When nil, oracle mode
	// builds a ThresholdGate over Oracle and proof-of-work mode builds a
	// ProofOfWorkGate.
	Gate   admission.Gate
	Oracle admission.Oracle

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Now defaults to time.Now. It stamps genesis and proof-of-work attempts.
	Now func() time.Time
}

// Ledger is safe for concurrent use; every operation holds one mutex so
// admissions and validations are serialised.
type Ledger struct {
	mu sync.Mutex

	cfg     Config
	store   store.ChainStore
	keys    qkd.KeyAgreement
	gate    admission.Gate
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds a ledger, creating the genesis block when the store is empty.
func New(p Params) (*Ledger, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}

	l := &Ledger{
		cfg:     p.Config,
		store:   p.Store,
		keys:    p.KeyAgreement,
		gate:    p.Gate,
		log:     p.Logger,
		metrics: p.Metrics,
		now:     p.Now,
	}
	if l.store == nil {
		l.store = store.NewMemoryChainStore()
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.cfg.Encrypt && l.keys == nil {
		return nil, errors.New("encryption enabled without a key agreement")
	}

	if l.gate == nil {
		switch l.cfg.Mode {
		case ModeOracle:
			if p.Oracle == nil {
				return nil, errors.New("oracle mode needs an oracle or a gate")
			}
			l.gate = admission.NewThresholdGate(p.Oracle, l.cfg.Threshold, l.cfg.PatternBits)
		case ModeProofOfWork:
			gate := admission.NewProofOfWorkGate(l.cfg.Difficulty, l.cfg.searchLimits())
			gate.Now = l.now
			l.gate = gate
		}
	}

	if err := l.ensureGenesis(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureGenesis() error {
	height, err := l.store.GetChainHeight()
	if err != nil {
		return fmt.Errorf("failed to read chain height: %w", err)
	}

	if height > 0 {
		genesis, err := l.store.GetBlockByIndex(0)
		if err != nil {
			return fmt.Errorf("failed to read genesis: %w", err)
		}
		if err := blockchain.ValidateGenesis(genesis); err != nil {
			return fmt.Errorf("stored genesis is invalid: %w", err)
		}
		l.log.Info("loaded chain", zap.Uint64("height", height), zap.String("gate", l.gate.Name()))
		l.metrics.SetHeight(height)
		return nil
	}

	genesis := blockchain.NewGenesisBlock(blockchain.Timestamp(l.now()))
	if err := l.store.AddBlock(genesis); err != nil {
		return fmt.Errorf("failed to persist genesis: %w", err)
	}
	l.log.Info("created genesis block", zap.String("hash", genesis.Hash), zap.String("gate", l.gate.Name()))
	l.metrics.SetHeight(1)
	return nil
}

func (l *Ledger) Config() Config { return l.cfg }

// Height is the number of blocks, genesis included.
func (l *Ledger) Height() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetChainHeight()
}

// Block returns a copy of the block at index.
func (l *Ledger) Block(index uint64) (*blockchain.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetBlockByIndex(index)
}

func (l *Ledger) BlockByHash(hash string) (*blockchain.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetBlockByHash(hash)
}

// Head returns a copy of the tip.
func (l *Ledger) Head() (*blockchain.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headLocked()
}

func (l *Ledger) headLocked() (*blockchain.Block, error) {
	head, err := l.store.GetHeadBlock()
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, blockchain.ErrEmptyChain
	}
	return head, nil
}

// Blocks returns copies of every block in order.
func (l *Ledger) Blocks() ([]*blockchain.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	chain, err := l.store.GetChain()
	if err != nil {
		return nil, err
	}
	return chain.Blocks, nil
}

// Validate rehashes the whole chain and returns the first
// blockchain.IntegrityViolation, if any.
func (l *Ledger) Validate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validateLocked()
}

// IsChainValid is Validate reduced to a boolean.
func (l *Ledger) IsChainValid() bool {
	return l.Validate() == nil
}

func (l *Ledger) validateLocked() error {
	chain, err := l.store.GetChain()
	if err != nil {
		return fmt.Errorf("failed to get chain: %w", err)
	}

	err = blockchain.ValidateChain(chain.Blocks)
	l.metrics.Validated(err == nil)

	var violation blockchain.IntegrityViolation
	if errors.As(err, &violation) {
		l.log.Warn("chain integrity violation",
			zap.Uint64("index", violation.Index),
			zap.Stringer("kind", violation.Kind),
			zap.String("expected", violation.Expected),
			zap.String("stored", violation.Actual),
		)
	}
	return err
}

// Close releases the store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Close()
}
