package qkd

// BB84Options tunes the BB84 simulation.
type BB84Options struct {
	// Eavesdrop puts an intercept-resend attacker on the channel. She
	// measures every photon in a random basis and re-prepares it, which
	// corrupts about a quarter of the sifted bits.
	Eavesdrop bool
}

// BB84 sifts on matching sender and receiver bases.
type BB84 struct {
	src  BitSource
	opts BB84Options
}

func NewBB84(src BitSource, opts BB84Options) *BB84 {
	return &BB84{src: src, opts: opts}
}

func (b *BB84) Name() string { return "bb84" }

func (b *BB84) Generate(length int) Result {
	if length < 0 {
		length = 0
	}

	// 1. Sender bits and bases, receiver bases
	aliceBits := make([]uint8, length)
	aliceBases := make([]uint8, length)
	bobBases := make([]uint8, length)
	for i := 0; i < length; i++ {
		aliceBits[i] = b.src.Bit()
		aliceBases[i] = b.src.Bit()
		bobBases[i] = b.src.Bit()
	}

	// 2. Transmission and measurement
	bobBits := make([]uint8, length)
	for i := 0; i < length; i++ {
		bit, basis := aliceBits[i], aliceBases[i]
		if b.opts.Eavesdrop {
			eveBasis := b.src.Bit()
			if eveBasis != basis {
				bit = b.src.Bit()
			}
			basis = eveBasis
		}
		if bobBases[i] == basis {
			bobBits[i] = bit
		} else {
			bobBits[i] = b.src.Bit()
		}
	}

	// 3. Sifting
	aliceKey := make(Key, 0, length/2)
	bobKey := make(Key, 0, length/2)
	for i := 0; i < length; i++ {
		if aliceBases[i] == bobBases[i] {
			aliceKey = append(aliceKey, aliceBits[i])
			bobKey = append(bobKey, bobBits[i])
		}
	}

	// 4. Error estimation over the whole sifted key
	return Result{
		Key:       aliceKey,
		ErrorRate: mismatchRate(aliceKey, bobKey),
		Requested: length,
		Sifted:    len(aliceKey),
		Sampled:   len(aliceKey),
	}
}
