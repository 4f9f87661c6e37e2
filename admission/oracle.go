// Package admission decides whether a candidate block may join the chain.
//
// Two gates are provided. ThresholdGate asks an Oracle for the measured
// success rate of a search over the block's index pattern and accepts when it
// clears a threshold. ProofOfWorkGate searches nonces until the block hash has
// the required number of leading zero characters.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

const (
	DefaultThreshold   = 70.0
	DefaultPatternBits = 3
)

var ErrInvalidPattern = errors.New("pattern must be a non-empty string of 0 and 1")

// Oracle is the search backend. Given a bit pattern it reports the percentage
// of runs, in [0, 100], that found the pattern.
type Oracle interface {
	Name() string
	Measure(ctx context.Context, pattern string) (float64, error)
}

// AccuracyRangeError is returned when an oracle reports a value outside [0, 100].
type AccuracyRangeError struct {
	Oracle   string
	Accuracy float64
}

func (e AccuracyRangeError) Error() string {
	return fmt.Sprintf("oracle %s returned accuracy %.2f outside [0, 100]", e.Oracle, e.Accuracy)
}

// IndexPattern encodes index as a zero-padded binary string of the given
// width. Indices that do not fit wrap modulo 2^bits, so with the default
// three bits block 8 shares the pattern of block 0.
func IndexPattern(index uint64, bits int) string {
	if bits <= 0 {
		bits = DefaultPatternBits
	}
	if bits < 64 {
		index &= (uint64(1) << uint(bits)) - 1
	}
	s := strconv.FormatUint(index, 2)
	for len(s) < bits {
		s = "0" + s
	}
	return s
}

func validPattern(pattern string) error {
	if pattern == "" {
		return ErrInvalidPattern
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '0' && pattern[i] != '1' {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}
	return nil
}

// StaticOracle always reports the same accuracy.
type StaticOracle struct {
	Accuracy float64
}

func (o StaticOracle) Name() string { return "static" }

func (o StaticOracle) Measure(ctx context.Context, pattern string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validPattern(pattern); err != nil {
		return 0, err
	}
	return o.Accuracy, nil
}
