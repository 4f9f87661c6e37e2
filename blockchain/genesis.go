package blockchain

// NewGenesisBlock creates block 0: empty transactions and the "0" previous
// hash sentinel. The linkage check skips it but its own hash is still
// computed over its fields.
func NewGenesisBlock(timestamp float64) *Block {
	genesis := &Block{
		Index:        0,
		Transactions: EmptyPayload(),
		Timestamp:    timestamp,
		PreviousHash: GenesisPreviousHash,
	}
	genesis.Hash = HashBlock(genesis)
	return genesis
}

// IsGenesis reports whether b has the shape of a genesis block.
func IsGenesis(b *Block) bool {
	return b != nil &&
		b.Index == 0 &&
		b.PreviousHash == GenesisPreviousHash &&
		b.Transactions.Kind == PayloadEmpty
}
