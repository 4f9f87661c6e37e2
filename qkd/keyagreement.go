// Package qkd simulates two-party quantum key distribution. The simulations
// are pedagogical: they reproduce the sifting and error-estimation steps of
// BB84 and B92 over a classical random source and offer no real secrecy.
package qkd

// DefaultDetectionThreshold is the error rate above which an exchange is
// treated as eavesdropped.
const DefaultDetectionThreshold = 0.2

// Key is a sequence of bits, one per element, each 0 or 1.
type Key []uint8

// Result is the outcome of one key exchange.
type Result struct {
	Key       Key
	ErrorRate float64

	Requested int // positions exchanged
	Sifted    int // positions surviving sifting
	Sampled   int // sifted positions disclosed for error estimation
}

// KeyAgreement derives a shared key of at most length bits. Implementations
// never fail: when nothing survives sifting they return an empty key and a
// zero error rate.
type KeyAgreement interface {
	Name() string
	Generate(length int) Result
}

// EavesdropDetected reports whether the measured error rate exceeds
// threshold.
func EavesdropDetected(r Result, threshold float64) bool {
	return r.ErrorRate > threshold
}

func mismatchRate(a, b []uint8) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	errs := 0
	for i := range a {
		if a[i] != b[i] {
			errs++
		}
	}
	return float64(errs) / float64(len(a))
}
