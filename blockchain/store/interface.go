package store

import (
	"errors"
	"fmt"

	"qledger/blockchain"
)

var (
	ErrBlockNotFound = errors.New("block not found")
	ErrNilBlock      = errors.New("block is nil")
	ErrClosed        = errors.New("store is closed")
)

// NonContiguousError is returned when a block is appended out of order.
type NonContiguousError struct {
	Index  uint64
	Height uint64
}

func (e NonContiguousError) Error() string {
	return fmt.Sprintf("cannot append block %d at height %d", e.Index, e.Height)
}

// ChainStore persists the ordered block sequence. Implementations copy
// blocks on the way in and out, so callers never share memory with the store.
type ChainStore interface {

	// Update/Add/Put
	AddBlock(block *blockchain.Block) error
	UpdateBlock(block *blockchain.Block) error

	// Getters
	GetBlockByIndex(index uint64) (*blockchain.Block, error)
	GetBlockByHash(hash string) (*blockchain.Block, error)
	GetHeadBlock() (*blockchain.Block, error)
	GetChainHeight() (uint64, error)
	GetChain() (*blockchain.Chain, error)

	Close() error
}
