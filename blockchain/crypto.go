package blockchain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// CanonicalBytes is the digest input for a block: a JSON object with sorted
// keys, ASCII-only strings and no whitespace. The nonce is left out while it
// is zero so oracle-admitted blocks hash over index, previous_hash, timestamp
// and transactions only.
func CanonicalBytes(b *Block) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, `{"index":`...)
	buf = strconv.AppendUint(buf, b.Index, 10)
	if b.Nonce != 0 {
		buf = append(buf, `,"nonce":`...)
		buf = strconv.AppendUint(buf, b.Nonce, 10)
	}
	buf = append(buf, `,"previous_hash":`...)
	buf = appendString(buf, b.PreviousHash)
	buf = append(buf, `,"timestamp":`...)
	buf = appendFloat(buf, b.Timestamp)
	buf = append(buf, `,"transactions":`...)
	buf = appendPayload(buf, b.Transactions)
	buf = append(buf, '}')
	return buf
}

// deterministic hash for blocks
func HashBlock(b *Block) string {
	sum := sha256.Sum256(CanonicalBytes(b))
	return hex.EncodeToString(sum[:])
}

func appendPayload(buf []byte, p Payload) []byte {
	switch p.Kind {
	case PayloadRecord:
		buf = append(buf, `{"amount":`...)
		buf = strconv.AppendUint(buf, p.Record.Amount, 10)
		buf = append(buf, `,"recipient":`...)
		buf = appendString(buf, p.Record.Recipient)
		buf = append(buf, `,"sender":`...)
		buf = appendString(buf, p.Record.Sender)
		return append(buf, '}')
	case PayloadOpaque:
		return appendString(buf, p.Opaque)
	default:
		return append(buf, "[]"...)
	}
}

func appendFloat(buf []byte, f float64) []byte {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		buf = strconv.AppendInt(buf, int64(f), 10)
		return append(buf, ".0"...)
	}
	return strconv.AppendFloat(buf, f, 'f', -1, 64)
}

// appendString writes s as a JSON string literal, escaping every non-ASCII
// rune as \uXXXX (surrogate pairs above the BMP).
func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '"':
			buf = append(buf, '\\', '"')
		case r == '\\':
			buf = append(buf, '\\', '\\')
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r == '\b':
			buf = append(buf, '\\', 'b')
		case r == '\f':
			buf = append(buf, '\\', 'f')
		case r < 0x20 || (r >= 0x7f && r <= 0xffff):
			buf = appendEscapedRune(buf, r)
		case r > 0xffff:
			r -= 0x10000
			buf = appendEscapedRune(buf, 0xd800+(r>>10))
			buf = appendEscapedRune(buf, 0xdc00+(r&0x3ff))
		default:
			buf = append(buf, byte(r))
		}
	}
	return append(buf, '"')
}

func appendEscapedRune(buf []byte, r rune) []byte {
	return append(buf, '\\', 'u',
		hexDigits[(r>>12)&0xf],
		hexDigits[(r>>8)&0xf],
		hexDigits[(r>>4)&0xf],
		hexDigits[r&0xf],
	)
}
