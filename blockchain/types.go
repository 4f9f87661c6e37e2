package blockchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// GenesisPreviousHash is the sentinel previous hash carried by block 0.
	GenesisPreviousHash = "0"

	// DefaultDifficulty is the number of leading zero hex characters the
	// proof-of-work mode requires.
	DefaultDifficulty = 2
)

// Transaction is the plain transfer record a caller submits.
type Transaction struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
}

// PayloadKind tags which member of a Payload is set.
type PayloadKind uint8

const (
	PayloadEmpty PayloadKind = iota
	PayloadRecord
	PayloadOpaque
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadEmpty:
		return "empty"
	case PayloadRecord:
		return "record"
	case PayloadOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("PayloadKind(%d)", uint8(k))
	}
}

// Payload is what a block commits to. Before admission it holds a plain
// Transaction; once the ledger has encrypted it, it holds the ciphertext as an
// opaque string. Genesis carries an empty payload.
type Payload struct {
	Kind   PayloadKind
	Record Transaction
	Opaque string
}

// EmptyPayload is the genesis payload; it encodes as [].
func EmptyPayload() Payload { return Payload{Kind: PayloadEmpty} }

// RecordPayload wraps a plaintext transaction.
func RecordPayload(tx Transaction) Payload {
	return Payload{Kind: PayloadRecord, Record: tx}
}

// OpaquePayload wraps ciphertext or any other string; it encodes as a JSON
// string.
func OpaquePayload(s string) Payload {
	return Payload{Kind: PayloadOpaque, Opaque: s}
}

// Canonical returns the canonical JSON text of the payload.
func (p Payload) Canonical() string {
	return string(appendPayload(nil, p))
}

func (p Payload) String() string {
	switch p.Kind {
	case PayloadRecord:
		return fmt.Sprintf("%s -> %s: %d", p.Record.Sender, p.Record.Recipient, p.Record.Amount)
	case PayloadOpaque:
		return fmt.Sprintf("%q", p.Opaque)
	default:
		return "[]"
	}
}

func (p Payload) MarshalJSON() ([]byte, error) {
	return appendPayload(nil, p), nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) != 0 {
			return fmt.Errorf("payload list must be empty, got %d items", len(items))
		}
		*p = EmptyPayload()
	case '{':
		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return err
		}
		*p = RecordPayload(tx)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = OpaquePayload(s)
	case 'n':
		*p = EmptyPayload()
	default:
		return fmt.Errorf("unsupported payload encoding %q", data[0])
	}
	return nil
}

// Block is one ledger entry. Hash covers every field except Hash and
// MiningAccuracy; Nonce only counts when non-zero.
type Block struct {
	Index          uint64   `json:"index"`
	Transactions   Payload  `json:"transactions"`
	Timestamp      float64  `json:"timestamp"`
	PreviousHash   string   `json:"previous_hash"`
	Nonce          uint64   `json:"nonce,omitempty"`
	Hash           string   `json:"hash"`
	MiningAccuracy *float64 `json:"mining_accuracy,omitempty"`
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	if b.MiningAccuracy != nil {
		acc := *b.MiningAccuracy
		c.MiningAccuracy = &acc
	}
	return &c
}

// CalculateHash recomputes the digest over the block's committed fields.
func (b *Block) CalculateHash() string {
	return HashBlock(b)
}

// Chain is the ordered block sequence, genesis first.
type Chain struct {
	Blocks []*Block `json:"blocks"`
}

// Timestamp converts t to the fractional Unix seconds stored in blocks.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
