package qkd

const (
	DefaultB92ErrorProbability = 0.1
	DefaultB92TestFraction     = 0.1
)

// B92Options tunes the B92 simulation.
type B92Options struct {
	// ErrorProbability is the chance that the channel flips a transmitted bit.
	ErrorProbability float64
	// TestFraction is the share of the sifted key disclosed to estimate the
	// error rate. Disclosed bits are dropped from the key.
	TestFraction float64
}

func DefaultB92Options() B92Options {
	return B92Options{
		ErrorProbability: DefaultB92ErrorProbability,
		TestFraction:     DefaultB92TestFraction,
	}
}

// B92 keeps a position when the receiver's measurement is conclusive, which
// the simulation models as the receiver basis differing from the sender bit.
type B92 struct {
	src  BitSource
	opts B92Options
}

func NewB92(src BitSource, opts B92Options) *B92 {
	if opts.ErrorProbability < 0 {
		opts.ErrorProbability = 0
	}
	if opts.ErrorProbability > 1 {
		opts.ErrorProbability = 1
	}
	if opts.TestFraction < 0 {
		opts.TestFraction = 0
	}
	if opts.TestFraction > 1 {
		opts.TestFraction = 1
	}
	return &B92{src: src, opts: opts}
}

func (b *B92) Name() string { return "b92" }

func (b *B92) Generate(length int) Result {
	if length < 0 {
		length = 0
	}

	// 1. Sender bits, receiver bases and channel noise
	aliceBits := make([]uint8, length)
	bobBases := make([]uint8, length)
	bobResults := make([]uint8, length)
	for i := 0; i < length; i++ {
		aliceBits[i] = b.src.Bit()
		bobBases[i] = b.src.Bit()
		noisy := b.src.Float64() < b.opts.ErrorProbability
		if noisy {
			bobResults[i] = aliceBits[i] ^ 1
		} else {
			bobResults[i] = aliceBits[i]
		}
	}

	// 2. Sifting on conclusive measurements, remembering source positions
	sifted := make(Key, 0, length/2)
	positions := make([]int, 0, length/2)
	for i := 0; i < length; i++ {
		if bobBases[i] != aliceBits[i] {
			sifted = append(sifted, bobResults[i])
			positions = append(positions, i)
		}
	}
	if len(sifted) == 0 {
		return Result{Key: Key{}, Requested: length}
	}

	// 3. Disclose the tail of the sifted key and compare with the sender
	sampleSize := int(float64(len(sifted)) * b.opts.TestFraction)
	if sampleSize == 0 {
		return Result{Key: sifted, Requested: length, Sifted: len(sifted)}
	}

	cut := len(sifted) - sampleSize
	bobSample := sifted[cut:]
	aliceSample := make([]uint8, sampleSize)
	for j, pos := range positions[cut:] {
		aliceSample[j] = aliceBits[pos]
	}

	return Result{
		Key:       sifted[:cut:cut],
		ErrorRate: mismatchRate(aliceSample, bobSample),
		Requested: length,
		Sifted:    len(sifted),
		Sampled:   sampleSize,
	}
}
