package blockchain

// validateBlockHash checks the self-hash invariant of the block at position.
func validateBlockHash(position uint64, block *Block) error {
	calculated := HashBlock(block)
	if block.Hash != calculated {
		return IntegrityViolation{
			Index:    position,
			Kind:     HashMismatch,
			Expected: calculated,
			Actual:   block.Hash,
		}
	}
	return nil
}

// validateBlockLink checks that the block at position points at prev.
func validateBlockLink(position uint64, block, prev *Block) error {
	if block.PreviousHash != prev.Hash {
		return IntegrityViolation{
			Index:    position,
			Kind:     LinkMismatch,
			Expected: prev.Hash,
			Actual:   block.PreviousHash,
		}
	}
	return nil
}

// ValidateChain recomputes every block hash and checks the previous-hash links
// from position 1 onwards; genesis has no link to check. The first failure is
// returned as an IntegrityViolation naming the block's position in blocks.
// Nothing is cached: each call rehashes the whole chain.
func ValidateChain(blocks []*Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	if err := validateBlockHash(0, blocks[0]); err != nil {
		return err
	}

	for i := 1; i < len(blocks); i++ {
		current := blocks[i]
		previous := blocks[i-1]

		// 1. Block contents still match the stored hash
		if err := validateBlockHash(uint64(i), current); err != nil {
			return err
		}

		// 2. Previous hash linking
		if err := validateBlockLink(uint64(i), current, previous); err != nil {
			return err
		}
	}

	return nil
}

func IsChainValid(blocks []*Block) bool {
	return ValidateChain(blocks) == nil
}

// ValidateGenesis checks that block 0 has the genesis shape and matches its
// own hash.
func ValidateGenesis(genesis *Block) error {
	if !IsGenesis(genesis) {
		return IntegrityViolation{Index: 0, Kind: LinkMismatch, Expected: GenesisPreviousHash, Actual: previousHashOf(genesis)}
	}
	return validateBlockHash(0, genesis)
}

func previousHashOf(b *Block) string {
	if b == nil {
		return ""
	}
	return b.PreviousHash
}
