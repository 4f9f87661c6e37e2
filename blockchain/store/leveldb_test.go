package store

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"qledger/blockchain"
)

func sampleChain(n int) []*blockchain.Block {
	blocks := []*blockchain.Block{blockchain.NewGenesisBlock(1700000000.5)}
	for i := 1; i < n; i++ {
		acc := 70 + float64(i)/4
		b := blockchain.NewBlock(blockchain.BlockCreationParams{
			Index:        uint64(i),
			Transaction:  &blockchain.Transaction{Sender: fmt.Sprintf("sender_%d", i), Recipient: fmt.Sprintf("recipient_%d", i), Amount: uint64(i * 100)},
			PreviousHash: blocks[i-1].Hash,
			Timestamp:    1700000000.5 + float64(i)*0.125,
		})
		if i%2 == 0 {
			b.Transactions = blockchain.OpaquePayload("\x01éÿ\x00z")
			b.Hash = blockchain.HashBlock(b)
			b.MiningAccuracy = &acc
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func TestChainStoreImplementations(t *testing.T) {
	stores := map[string]func(t *testing.T) ChainStore{
		"memory": func(t *testing.T) ChainStore { return NewMemoryChainStore() },
		"leveldb": func(t *testing.T) ChainStore {
			s, err := OpenMemLevelDB(2, nil)
			require.NoError(t, err)
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			blocks := sampleChain(6)
			for _, b := range blocks {
				require.NoError(t, s.AddBlock(b))
			}

			height, err := s.GetChainHeight()
			require.NoError(t, err)
			require.Equal(t, uint64(6), height)

			chain, err := s.GetChain()
			require.NoError(t, err)
			if diff := cmp.Diff(blocks, chain.Blocks); diff != "" {
				t.Fatalf("chain round trip mismatch (-want +got):\n%s", diff)
			}
			require.True(t, blockchain.IsChainValid(chain.Blocks))

			byHash, err := s.GetBlockByHash(blocks[3].Hash)
			require.NoError(t, err)
			require.Equal(t, uint64(3), byHash.Index)

			head, err := s.GetHeadBlock()
			require.NoError(t, err)
			require.Equal(t, blocks[5].Hash, head.Hash)

			_, err = s.GetBlockByIndex(6)
			require.ErrorAs(t, err, &blockchain.IndexOutOfRangeError{})

			altered := blocks[2].Clone()
			altered.Transactions = blockchain.OpaquePayload("Altered Transactions")
			altered.Hash = blockchain.HashBlock(altered)
			require.NoError(t, s.UpdateBlock(altered))

			got, err := s.GetBlockByIndex(2)
			require.NoError(t, err)
			require.Equal(t, altered, got)

			_, err = s.GetBlockByHash(blocks[2].Hash)
			require.ErrorIs(t, err, ErrBlockNotFound)

			require.NoError(t, s.UpdateBlock(blocks[2]))
			chain, err = s.GetChain()
			require.NoError(t, err)
			require.True(t, blockchain.IsChainValid(chain.Blocks))

			require.ErrorAs(t, s.AddBlock(blocks[1]), &NonContiguousError{})
		})
	}
}

func TestLevelDBReopen(t *testing.T) {
	dir := t.TempDir()
	blocks := sampleChain(4)

	s, err := OpenLevelDB(dir, 0, nil)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, s.AddBlock(b))
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.GetChainHeight()
	require.ErrorIs(t, err, ErrClosed)

	s, err = OpenLevelDB(dir, 0, nil)
	require.NoError(t, err)
	defer s.Close()

	height, err := s.GetChainHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(4), height)

	chain, err := s.GetChain()
	require.NoError(t, err)
	if diff := cmp.Diff(blocks, chain.Blocks); diff != "" {
		t.Fatalf("reopened chain mismatch (-want +got):\n%s", diff)
	}
}
