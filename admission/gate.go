package admission

import (
	"context"
	"fmt"
	"math"
	"time"

	"qledger/blockchain"
)

// Decision is the outcome of one admission attempt.
type Decision struct {
	Accepted bool
	Pattern  string
	// Accuracy is set by oracle gates.
	Accuracy  *float64
	Threshold float64
	// Attempts counts hash evaluations for proof-of-work.
	Attempts uint64
}

// Gate decides on a candidate. The ledger links the candidate to the current
// tip before calling Admit, so a gate may mutate committed fields (nonce,
// timestamp) as long as it leaves Hash consistent with them. A rejection is
// a Decision with Accepted false; errors are reserved for failures to decide.
type Gate interface {
	Name() string
	Admit(ctx context.Context, block *blockchain.Block) (Decision, error)
}

// ThresholdGate accepts a block when the oracle's accuracy for the block's
// index pattern is at least Threshold.
type ThresholdGate struct {
	Oracle      Oracle
	Threshold   float64
	PatternBits int
}

func NewThresholdGate(oracle Oracle, threshold float64, patternBits int) *ThresholdGate {
	if patternBits <= 0 {
		patternBits = DefaultPatternBits
	}
	return &ThresholdGate{Oracle: oracle, Threshold: threshold, PatternBits: patternBits}
}

func (g *ThresholdGate) Name() string { return "oracle/" + g.Oracle.Name() }

func (g *ThresholdGate) Admit(ctx context.Context, block *blockchain.Block) (Decision, error) {
	pattern := IndexPattern(block.Index, g.PatternBits)

	accuracy, err := g.Oracle.Measure(ctx, pattern)
	if err != nil {
		return Decision{}, fmt.Errorf("oracle %s measuring %s: %w", g.Oracle.Name(), pattern, err)
	}
	if math.IsNaN(accuracy) || accuracy < 0 || accuracy > 100 {
		return Decision{}, AccuracyRangeError{Oracle: g.Oracle.Name(), Accuracy: accuracy}
	}

	return Decision{
		Accepted:  accuracy >= g.Threshold,
		Pattern:   pattern,
		Accuracy:  &accuracy,
		Threshold: g.Threshold,
	}, nil
}

// ProofOfWorkGate mines the block in place. It never rejects; a search that
// runs out of attempts or time is an error.
type ProofOfWorkGate struct {
	Difficulty int
	Limits     blockchain.SearchLimits
	Now        func() time.Time
}

func NewProofOfWorkGate(difficulty int, limits blockchain.SearchLimits) *ProofOfWorkGate {
	return &ProofOfWorkGate{Difficulty: difficulty, Limits: limits, Now: time.Now}
}

func (g *ProofOfWorkGate) Name() string { return fmt.Sprintf("pow/%d", g.Difficulty) }

func (g *ProofOfWorkGate) Admit(ctx context.Context, block *blockchain.Block) (Decision, error) {
	_, attempts, err := blockchain.MineCorrectNonce(ctx, block, g.Difficulty, g.Limits, g.Now)
	if err != nil {
		return Decision{Attempts: attempts}, fmt.Errorf("mining block %d: %w", block.Index, err)
	}
	return Decision{Accepted: true, Attempts: attempts}, nil
}
