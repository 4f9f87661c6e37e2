package qkd

import "time"

// Timing summarises repeated key exchanges at one requested length.
type Timing struct {
	Protocol   string
	Length     int
	Iterations int

	Average time.Duration
	// MeanKeyBits and MeanErrorRate average the exchanges' outcomes.
	MeanKeyBits   float64
	MeanErrorRate float64
}

// Measure runs iterations exchanges of length positions and times them.
func Measure(ka KeyAgreement, length, iterations int) Timing {
	t := Timing{Protocol: ka.Name(), Length: length, Iterations: iterations}
	if iterations <= 0 {
		return t
	}

	var total time.Duration
	var bits, rate float64
	for i := 0; i < iterations; i++ {
		start := time.Now()
		r := ka.Generate(length)
		total += time.Since(start)
		bits += float64(len(r.Key))
		rate += r.ErrorRate
	}

	n := float64(iterations)
	t.Average = total / time.Duration(iterations)
	t.MeanKeyBits = bits / n
	t.MeanErrorRate = rate / n
	return t
}
