// Package streamcipher XORs a message against a repeating key bit sequence.
//
// The keystream is the key itself, reused whenever the key is shorter than
// the message. It is a teaching cipher and is not secure.
package streamcipher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyKey      = errors.New("stream cipher: empty key for non-empty message")
	ErrInvalidKeyBit = errors.New("stream cipher: key bits must be 0 or 1")
)

// CodeUnitError reports a character that does not fit in one 8-bit code unit.
type CodeUnitError struct {
	Offset int
	Rune   rune
}

func (e CodeUnitError) Error() string {
	return fmt.Sprintf("stream cipher: character %q at offset %d exceeds 8 bits", e.Rune, e.Offset)
}

// Apply encrypts or decrypts message under key. Each character is one 8-bit
// code unit; bit j of the message, counted most significant bit first, is
// XORed with key[j mod len(key)]. Applying it twice with the same key
// returns the original message.
func Apply(message string, key []uint8) (string, error) {
	if message == "" {
		return "", nil
	}

	units := make([]byte, 0, len(message))
	for offset, r := range message {
		// invalid UTF-8 decodes to utf8.RuneError, which is also rejected here
		if r > 0xFF {
			return "", CodeUnitError{Offset: offset, Rune: r}
		}
		units = append(units, byte(r))
	}

	out, err := ApplyBits(units, key)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(out) * 2)
	for _, u := range out {
		sb.WriteRune(rune(u))
	}
	return sb.String(), nil
}

// ApplyBits is the byte level core of Apply. It returns a new slice.
func ApplyBits(data []byte, key []uint8) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	for _, bit := range key {
		if bit > 1 {
			return nil, ErrInvalidKeyBit
		}
	}

	out := make([]byte, len(data))
	pos := 0
	for i, b := range data {
		var mask byte
		for j := 7; j >= 0; j-- {
			mask |= key[pos%len(key)] << uint(j)
			pos++
		}
		out[i] = b ^ mask
	}
	return out, nil
}
