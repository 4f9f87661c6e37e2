package qkd

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// BitSource supplies the uniform randomness the simulations draw from.
type BitSource interface {
	// Bit returns 0 or 1 with equal probability.
	Bit() uint8
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

type randSource struct {
	r *rand.Rand
}

func (s *randSource) Bit() uint8 { return uint8(s.r.Uint64() & 1) }

func (s *randSource) Float64() float64 { return s.r.Float64() }

// NewSeededSource returns a deterministic source for reproducible runs.
func NewSeededSource(seed uint64) BitSource {
	return &randSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewCryptoSource returns a ChaCha8 stream keyed from crypto/rand.
func NewCryptoSource() BitSource {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// seed from the runtime generator instead
		binary.LittleEndian.PutUint64(seed[:], rand.Uint64())
		binary.LittleEndian.PutUint64(seed[8:], rand.Uint64())
	}
	return &randSource{r: rand.New(rand.NewChaCha8(seed))}
}
