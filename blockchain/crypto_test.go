package blockchain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalBytes(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  string
	}{
		{
			name:  "genesis",
			block: Block{Index: 0, Transactions: EmptyPayload(), Timestamp: 0, PreviousHash: "0"},
			want:  `{"index":0,"previous_hash":"0","timestamp":0.0,"transactions":[]}`,
		},
		{
			name: "plain record with sorted keys",
			block: Block{
				Index:        1,
				Transactions: RecordPayload(Transaction{Sender: "Alice", Recipient: "Bob", Amount: 1}),
				Timestamp:    1700000000.25,
				PreviousHash: "ab",
			},
			want: `{"index":1,"previous_hash":"ab","timestamp":1700000000.25,"transactions":{"amount":1,"recipient":"Bob","sender":"Alice"}}`,
		},
		{
			name: "nonce is committed once non-zero",
			block: Block{
				Index:        2,
				Transactions: OpaquePayload("x"),
				Timestamp:    3,
				PreviousHash: "cd",
				Nonce:        7,
			},
			want: `{"index":2,"nonce":7,"previous_hash":"cd","timestamp":3.0,"transactions":"x"}`,
		},
		{
			name: "ciphertext characters are escaped to ascii",
			block: Block{
				Index:        3,
				Transactions: OpaquePayload("\x00\"é世"),
				Timestamp:    1,
				PreviousHash: "ef",
			},
			want: `{"index":3,"previous_hash":"ef","timestamp":1.0,"transactions":"\u0000\"\u00e9\u4e16"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, string(CanonicalBytes(&tt.block)))
		})
	}
}

func TestHashIgnoresMiningAccuracy(t *testing.T) {
	block := NewBlock(BlockCreationParams{
		Index:        1,
		Transaction:  &Transaction{Sender: "Alice", Recipient: "Bob", Amount: 1},
		PreviousHash: "0",
		Timestamp:    42,
	})
	before := block.CalculateHash()

	acc := 81.5
	block.MiningAccuracy = &acc
	require.Equal(t, before, block.CalculateHash())
	require.Len(t, before, 64)
}

func TestPayloadJSON(t *testing.T) {
	blocks := []*Block{
		NewGenesisBlock(10),
		NewBlock(BlockCreationParams{Index: 1, Transaction: &Transaction{Sender: "Zoë", Recipient: "Bob", Amount: 5}, PreviousHash: "0", Timestamp: 11}),
		{Index: 2, Transactions: OpaquePayload("\x01ÿ"), Timestamp: 12.5, PreviousHash: "1"},
	}
	blocks[2].Hash = HashBlock(blocks[2])

	for _, block := range blocks {
		data, err := json.Marshal(block)
		require.NoError(t, err)

		var decoded Block
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, block.Transactions, decoded.Transactions)
		require.Equal(t, block.Hash, HashBlock(&decoded))
	}
}

func TestPayloadRejectsNonEmptyList(t *testing.T) {
	var p Payload
	require.Error(t, json.Unmarshal([]byte(`[1]`), &p))
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("suffix:4")
	require.NoError(t, err)
	require.Equal(t, Pattern{Anchor: AnchorSuffix, Zeros: 4}, p)
	require.True(t, p.Match("abcd0000"))
	require.False(t, p.Match("0000abcd"))

	p, err = ParsePattern("prefix:2")
	require.NoError(t, err)
	require.True(t, p.Match("00cd"))
	require.Equal(t, "prefix:2", p.String())

	_, err = ParsePattern("middle:2")
	require.Error(t, err)
	_, err = ParsePattern("prefix")
	require.Error(t, err)
}
