package blockchain

import (
	"context"
	"time"
)

type NonceType = uint64

// SearchLimits bounds a hash search. Zero values mean "no bound" for that
// dimension; callers should set at least one.
type SearchLimits struct {
	MaxAttempts uint64
	Timeout     time.Duration
}

// ctx is polled every ctxPollInterval attempts.
const ctxPollInterval = 256

// search calls step until match accepts the hash it returns, starting from
// hash. It returns the accepted hash and the number of steps taken.
func search(ctx context.Context, limits SearchLimits, hash string, match func(string) bool, step func() string) (string, uint64, error) {
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	var attempts uint64
	for !match(hash) {
		attempts++
		if limits.MaxAttempts > 0 && attempts > limits.MaxAttempts {
			return hash, attempts - 1, SearchExhaustedError{Attempts: attempts - 1}
		}
		if attempts%ctxPollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return hash, attempts - 1, SearchExhaustedError{Attempts: attempts - 1, Cause: err}
			}
		}
		hash = step()
	}
	return hash, attempts, nil
}

// MineCorrectNonce increments the nonce and refreshes the timestamp until the
// block hash has difficulty leading zeros. On success block.Nonce, block.Timestamp
// and block.Hash hold the winning values and the attempt count is returned.
func MineCorrectNonce(ctx context.Context, block *Block, difficulty int, limits SearchLimits, now func() time.Time) (NonceType, uint64, error) {
	if now == nil {
		now = time.Now
	}

	match := func(hash string) bool { return HashMeetsDifficulty(hash, difficulty) }
	hash, attempts, err := search(ctx, limits, HashBlock(block), match, func() string {
		block.Nonce += 1
		block.Timestamp = Timestamp(now())
		return HashBlock(block)
	})
	if err != nil {
		return block.Nonce, attempts, err
	}

	block.Hash = hash
	return block.Nonce, attempts, nil
}

// ForgeTimestamp bumps block.Timestamp by one second per attempt until the
// recomputed hash matches pattern. block.Hash is left untouched; the matching
// hash is returned for the caller to install or discard.
func ForgeTimestamp(ctx context.Context, block *Block, pattern Pattern, limits SearchLimits) (string, uint64, error) {
	return search(ctx, limits, HashBlock(block), pattern.Match, func() string {
		block.Timestamp += 1
		return HashBlock(block)
	})
}
