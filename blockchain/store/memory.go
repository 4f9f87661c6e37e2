package store

import (
	"errors"
	"fmt"
	"sync"

	"qledger/blockchain"
)

type MemoryChainStore struct {
	chain  *blockchain.Chain
	closed bool
	mu     sync.RWMutex
}

func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{
		chain: &blockchain.Chain{
			Blocks: make([]*blockchain.Block, 0),
		},
	}
}

func (m *MemoryChainStore) AddBlock(block *blockchain.Block) error {
	if block == nil {
		return ErrNilBlock
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return fmt.Errorf("failed to get chain: %w", err)
	}

	height := uint64(len(chain.Blocks))
	if block.Index != height {
		return NonContiguousError{Index: block.Index, Height: height}
	}

	// Validation of hashes and links is the caller's job
	chain.Blocks = append(chain.Blocks, block.Clone())

	return nil
}

// UpdateBlock replaces the committed block at block.Index.
func (m *MemoryChainStore) UpdateBlock(block *blockchain.Block) error {
	if block == nil {
		return ErrNilBlock
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return err
	}

	height := uint64(len(chain.Blocks))
	if block.Index >= height {
		return blockchain.IndexOutOfRangeError{Index: block.Index, Height: height}
	}

	chain.Blocks[block.Index] = block.Clone()
	return nil
}

func (m *MemoryChainStore) GetHeadBlock() (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return nil, err
	}

	// Not returning an err as nil checks on this is valid
	if len(chain.Blocks) < 1 {
		return nil, nil
	}

	return chain.Blocks[len(chain.Blocks)-1].Clone(), nil
}

func (m *MemoryChainStore) GetBlockByIndex(index uint64) (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return nil, err
	}

	height := uint64(len(chain.Blocks))
	if index >= height {
		return nil, blockchain.IndexOutOfRangeError{Index: index, Height: height}
	}

	return chain.Blocks[index].Clone(), nil
}

func (m *MemoryChainStore) GetBlockByHash(hash string) (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return nil, err
	}

	for _, block := range chain.Blocks {
		if block.Hash == hash {
			return block.Clone(), nil
		}
	}

	return nil, fmt.Errorf("hash %s: %w", hash, ErrBlockNotFound)
}

func (m *MemoryChainStore) GetChain() (*blockchain.Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return nil, err
	}

	blocks := make([]*blockchain.Block, len(chain.Blocks))
	for i, block := range chain.Blocks {
		blocks[i] = block.Clone()
	}
	return &blockchain.Chain{Blocks: blocks}, nil
}

func (m *MemoryChainStore) GetChainHeight() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain, err := m.getChainUnsafe()
	if err != nil {
		return 0, err
	}

	return uint64(len(chain.Blocks)), nil
}

func (m *MemoryChainStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// getChainUnsafe returns the chain without locking - must be called with lock held
func (m *MemoryChainStore) getChainUnsafe() (*blockchain.Chain, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if m.chain == nil {
		return nil, errors.New("chain is nil")
	}
	return m.chain, nil
}
