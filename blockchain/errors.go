package blockchain

import (
	"errors"
	"fmt"
)

var ErrEmptyChain = errors.New("chain has no blocks")

type ViolationKind uint8

const (
	HashMismatch ViolationKind = iota + 1
	LinkMismatch
)

func (k ViolationKind) String() string {
	switch k {
	case HashMismatch:
		return "hash mismatch"
	case LinkMismatch:
		return "previous hash mismatch"
	default:
		return "unknown violation"
	}
}

func (k ViolationKind) MarshalText() ([]byte, error) {
	switch k {
	case HashMismatch:
		return []byte("hash"), nil
	case LinkMismatch:
		return []byte("link"), nil
	default:
		return nil, fmt.Errorf("unknown violation kind %d", uint8(k))
	}
}

func (k *ViolationKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hash":
		*k = HashMismatch
	case "link":
		*k = LinkMismatch
	default:
		return fmt.Errorf("unknown violation kind %q", text)
	}
	return nil
}

// IntegrityViolation is returned by ValidateChain for the first block whose
// stored hash or previous hash does not check out.
type IntegrityViolation struct {
	Index    uint64        `json:"index"`
	Kind     ViolationKind `json:"kind"`
	Expected string        `json:"expected"`
	Actual   string        `json:"actual"`
}

func (e IntegrityViolation) Error() string {
	return fmt.Sprintf("block %d %s: expected %s, stored %s", e.Index, e.Kind, short(e.Expected), short(e.Actual))
}

// SearchExhaustedError is returned when a bounded hash search gives up.
type SearchExhaustedError struct {
	Attempts uint64
	Cause    error
}

func (e SearchExhaustedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search exhausted after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("search exhausted after %d attempts", e.Attempts)
}

func (e SearchExhaustedError) Unwrap() error { return e.Cause }

type IndexOutOfRangeError struct {
	Index  uint64
	Height uint64
}

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("block index %d out of range (height %d)", e.Index, e.Height)
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
