package admission

import (
	"context"
	"math"
	"sync"

	"qledger/qkd"
)

const (
	DefaultShots = 8192
	// DefaultSuccessProbability is the ideal probability of reading the marked
	// state after one Grover iteration over three qubits.
	DefaultSuccessProbability = 25.0 / 32.0
)

// GroverSimulator samples the measurement statistics of a single-iteration
// Grover search instead of running a circuit. Each shot finds the pattern with
// the success probability, diluted by depolarising noise towards the uniform
// 1/2^len(pattern).
type GroverSimulator struct {
	Shots              int
	SuccessProbability float64
	Noise              float64

	mu  sync.Mutex
	src qkd.BitSource
}

func NewGroverSimulator(src qkd.BitSource, noise float64) *GroverSimulator {
	if src == nil {
		src = qkd.NewCryptoSource()
	}
	return &GroverSimulator{
		Shots:              DefaultShots,
		SuccessProbability: DefaultSuccessProbability,
		Noise:              noise,
		src:                src,
	}
}

func (g *GroverSimulator) Name() string { return "grover-sim" }

func (g *GroverSimulator) Measure(ctx context.Context, pattern string) (float64, error) {
	if err := validPattern(pattern); err != nil {
		return 0, err
	}
	shots := g.Shots
	if shots <= 0 {
		shots = DefaultShots
	}

	uniform := math.Ldexp(1, -len(pattern))
	p := (1-g.Noise)*g.SuccessProbability + g.Noise*uniform

	g.mu.Lock()
	defer g.mu.Unlock()

	hits := 0
	for i := 0; i < shots; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if g.src.Float64() < p {
			hits++
		}
	}
	return float64(hits) / float64(shots) * 100, nil
}
