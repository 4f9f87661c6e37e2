package ledger

import (
	"errors"
	"fmt"
	"time"

	"qledger/admission"
	"qledger/blockchain"
	"qledger/qkd"
)

// Mode selects the admission rule.
type Mode string

const (
	ModeOracle      Mode = "oracle"
	ModeProofOfWork Mode = "pow"
)

var (
	errUnknownMode     = errors.New("unknown admission mode")
	errThresholdRange  = errors.New("threshold must be within [0, 100]")
	errPatternBits     = errors.New("pattern bits must be within 1..63")
	errDifficultyRange = errors.New("difficulty must be within 1..64")
	errUnboundedSearch = errors.New("proof-of-work needs MaxAttempts or SearchTimeout")
	errKeyLength       = errors.New("key length must not be negative")
	errDetectionRange  = errors.New("detection threshold must be within [0, 1]")
)

// Config holds the ledger's admission parameters.
type Config struct {
	Mode Mode

	// Oracle mode
	Threshold   float64
	PatternBits int

	// Proof-of-work mode
	Difficulty    int
	MaxAttempts   uint64
	SearchTimeout time.Duration

	// Encrypt runs key agreement and the stream cipher over each payload.
	Encrypt bool
	// KeyLength is the number of positions exchanged per block. Zero means
	// eight per character of the canonical payload.
	KeyLength int
	// DetectionThreshold flags key exchanges whose error rate exceeds it.
	// Flagged blocks are still admitted.
	DetectionThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Mode:               ModeOracle,
		Threshold:          admission.DefaultThreshold,
		PatternBits:        admission.DefaultPatternBits,
		Difficulty:         blockchain.DefaultDifficulty,
		MaxAttempts:        1 << 24,
		SearchTimeout:      30 * time.Second,
		Encrypt:            true,
		DetectionThreshold: qkd.DefaultDetectionThreshold,
	}
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeOracle:
		if c.Threshold < 0 || c.Threshold > 100 {
			errs = append(errs, errThresholdRange)
		}
		if c.PatternBits < 1 || c.PatternBits > 63 {
			errs = append(errs, errPatternBits)
		}
	case ModeProofOfWork:
		if c.Difficulty < 1 || c.Difficulty > 64 {
			errs = append(errs, errDifficultyRange)
		}
		if c.MaxAttempts == 0 && c.SearchTimeout <= 0 {
			errs = append(errs, errUnboundedSearch)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", errUnknownMode, c.Mode))
	}
	if c.KeyLength < 0 {
		errs = append(errs, errKeyLength)
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		errs = append(errs, errDetectionRange)
	}
	return errors.Join(errs...)
}

func (c Config) searchLimits() blockchain.SearchLimits {
	return blockchain.SearchLimits{MaxAttempts: c.MaxAttempts, Timeout: c.SearchTimeout}
}
