package blockchain

import (
	"fmt"
	"strconv"
	"strings"
)

// HashMeetsDifficulty reports whether the hex digest starts with at least
// difficulty '0' characters.
func HashMeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// Anchor selects which end of the digest a Pattern inspects.
type Anchor uint8

const (
	AnchorPrefix Anchor = iota
	AnchorSuffix
)

// Pattern is the cheap check a forged hash must pass: a run of '0'
// characters at the start or the end of the hex digest.
type Pattern struct {
	Anchor Anchor
	Zeros  int
}

// Match reports whether hash carries the pattern's run of zeros.
func (p Pattern) Match(hash string) bool {
	if p.Zeros > len(hash) {
		return false
	}
	run := strings.Repeat("0", p.Zeros)
	if p.Anchor == AnchorSuffix {
		return strings.HasSuffix(hash, run)
	}
	return strings.HasPrefix(hash, run)
}

func (p Pattern) String() string {
	if p.Anchor == AnchorSuffix {
		return fmt.Sprintf("suffix:%d", p.Zeros)
	}
	return fmt.Sprintf("prefix:%d", p.Zeros)
}

func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePattern parses "prefix:N" or "suffix:N".
func ParsePattern(s string) (Pattern, error) {
	anchor, count, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Pattern{}, fmt.Errorf("invalid pattern %q: want prefix:N or suffix:N", s)
	}
	zeros, err := strconv.Atoi(count)
	if err != nil || zeros < 0 || zeros > 64 {
		return Pattern{}, fmt.Errorf("invalid pattern %q: zero count must be within 0..64", s)
	}

	switch strings.ToLower(anchor) {
	case "prefix", "leading":
		return Pattern{Anchor: AnchorPrefix, Zeros: zeros}, nil
	case "suffix", "trailing":
		return Pattern{Anchor: AnchorSuffix, Zeros: zeros}, nil
	default:
		return Pattern{}, fmt.Errorf("invalid pattern anchor %q", anchor)
	}
}
