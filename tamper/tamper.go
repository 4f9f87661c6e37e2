// Package tamper attacks a committed block to show that chain validation
// notices. The attacker rewrites one block's payload and re-stamps it until
// its hash passes a cheap pattern check, writes it back, runs the validator,
// and then puts the original block back.
package tamper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qledger/blockchain"
	"qledger/ledger"
	"qledger/metrics"
)

const DefaultSentinel = "Altered Transactions"

var DefaultPattern = blockchain.Pattern{Anchor: blockchain.AnchorPrefix, Zeros: 4}

type Config struct {
	Pattern     blockchain.Pattern
	Sentinel    string
	MaxAttempts uint64
	Timeout     time.Duration
	// InstallForgedHash writes the forged hash into the altered block. The
	// block then checks out on its own and the validator has to catch the
	// broken link from its successor instead.
	InstallForgedHash bool
}

func DefaultConfig() Config {
	return Config{
		Pattern:     DefaultPattern,
		Sentinel:    DefaultSentinel,
		MaxAttempts: 1 << 24,
		Timeout:     time.Minute,
	}
}

// Report describes one simulated attack.
type Report struct {
	ID      uuid.UUID
	Index   uint64
	Pattern blockchain.Pattern

	OriginalHash    string
	ForgedHash      string
	ForgedTimestamp float64
	Attempts        uint64
	Exhausted       bool
	Elapsed         time.Duration

	// Violation is what the validator reported while the altered block was
	// in place; nil when the attack went unnoticed.
	Violation *blockchain.IntegrityViolation
	Restored  bool
	// ValidAfterRestore is the validator's verdict once the original block
	// is back.
	ValidAfterRestore bool
}

func (r *Report) Detected() bool { return r.Violation != nil }

type Simulator struct {
	ledger  *ledger.Ledger
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(l *ledger.Ledger, cfg Config, log *zap.Logger, m *metrics.Metrics) *Simulator {
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{ledger: l, cfg: cfg, log: log, metrics: m}
}

// Run attacks the block at index. The ledger is locked for the whole run and
// the original block is always restored, even when the search is exhausted.
// An exhausted search still installs the last candidate and returns the
// report together with a blockchain.SearchExhaustedError.
func (s *Simulator) Run(ctx context.Context, index uint64) (*Report, error) {
	report := &Report{ID: uuid.New(), Index: index, Pattern: s.cfg.Pattern}
	log := s.log.With(zap.Uint64("index", index), zap.Stringer("run", report.ID), zap.Stringer("pattern", s.cfg.Pattern))

	var searchErr error
	err := s.ledger.Exclusive(func(v *ledger.View) error {
		original, err := v.Block(index)
		if err != nil {
			return err
		}
		report.OriginalHash = original.Hash

		// 1. Alter the payload and search for a matching hash
		altered := original.Clone()
		altered.Transactions = blockchain.OpaquePayload(s.cfg.Sentinel)

		start := time.Now()
		limits := blockchain.SearchLimits{MaxAttempts: s.cfg.MaxAttempts, Timeout: s.cfg.Timeout}
		forged, attempts, err := blockchain.ForgeTimestamp(ctx, altered, s.cfg.Pattern, limits)
		report.Elapsed = time.Since(start)
		report.Attempts = attempts
		report.ForgedHash = forged
		report.ForgedTimestamp = altered.Timestamp
		if err != nil {
			if !errors.As(err, new(blockchain.SearchExhaustedError)) {
				return err
			}
			report.Exhausted = true
			searchErr = err
			log.Warn("forgery search exhausted", zap.Uint64("attempts", attempts), zap.Error(err))
		}

		if s.cfg.InstallForgedHash {
			altered.Hash = forged
		}

		// 2. Install the altered block and let the validator look at it
		if err := v.Replace(altered); err != nil {
			return fmt.Errorf("failed to install altered block: %w", err)
		}
		verr := v.Validate()

		// 3. Restore the original block with its legitimate hash
		restored := original.Clone()
		restored.Hash = blockchain.HashBlock(restored)
		if restored.Hash != original.Hash {
			log.Warn("block was already inconsistent before the attack",
				zap.String("stored", original.Hash), zap.String("recomputed", restored.Hash))
		}
		if err := v.Replace(restored); err != nil {
			return fmt.Errorf("failed to restore block %d: %w", index, err)
		}
		report.Restored = true
		report.ValidAfterRestore = v.Validate() == nil

		var violation blockchain.IntegrityViolation
		switch {
		case errors.As(verr, &violation):
			report.Violation = &violation
		case verr != nil:
			return fmt.Errorf("validation during attack: %w", verr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TamperRun(report.Attempts, report.Detected())
	fields := []zap.Field{
		zap.Uint64("attempts", report.Attempts),
		zap.String("forged_hash", report.ForgedHash),
		zap.Bool("detected", report.Detected()),
		zap.Bool("valid_after_restore", report.ValidAfterRestore),
	}
	if report.Violation != nil {
		fields = append(fields, zap.Uint64("violation_index", report.Violation.Index), zap.Stringer("violation", report.Violation.Kind))
	}
	log.Info("tamper simulation finished", fields...)

	return report, searchErr
}
