package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"go.uber.org/zap"

	"qledger/blockchain"
)

// Key layout:
//
//	block_<index>  -> block JSON
//	hash_<hash>    -> index of the block currently carrying that hash
//	height_latest  -> number of committed blocks
const (
	blockKeyPrefix = "block_"
	hashKeyPrefix  = "hash_"
	heightKey      = "height_latest"
)

const defaultCacheSize = 256

// LevelDBChainStore keeps blocks in LevelDB with a small decoded-block cache
// in front of index lookups.
type LevelDBChainStore struct {
	db     *leveldb.DB
	cache  *lru.ARCCache
	height uint64
	log    *zap.Logger
	mu     sync.RWMutex
}

// OpenLevelDB opens or creates a store at path.
func OpenLevelDB(path string, cacheSize int, log *zap.Logger) (*LevelDBChainStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return newLevelDBChainStore(db, cacheSize, log)
}

// OpenMemLevelDB opens a store backed by in-memory LevelDB storage.
func OpenMemLevelDB(cacheSize int, log *zap.Logger) (*LevelDBChainStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory leveldb: %w", err)
	}
	return newLevelDBChainStore(db, cacheSize, log)
}

func newLevelDBChainStore(db *leveldb.DB, cacheSize int, log *zap.Logger) (*LevelDBChainStore, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &LevelDBChainStore{db: db, cache: cache, log: log}
	height, err := s.readHeight()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.height = height

	log.Info("leveldb store opened", zap.Uint64("height", height), zap.Int("cache", cacheSize))
	return s, nil
}

func blockKey(index uint64) []byte { return []byte(blockKeyPrefix + strconv.FormatUint(index, 10)) }

func hashKey(hash string) []byte { return []byte(hashKeyPrefix + hash) }

func (s *LevelDBChainStore) readHeight() (uint64, error) {
	v, err := s.db.Get([]byte(heightKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read height: %w", err)
	}
	h, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt height %q: %w", v, err)
	}
	return h, nil
}

func (s *LevelDBChainStore) AddBlock(block *blockchain.Block) error {
	if block == nil {
		return ErrNilBlock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	if block.Index != s.height {
		return NonContiguousError{Index: block.Index, Height: s.height}
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Index, err)
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Index), data)
	batch.Put(hashKey(block.Hash), []byte(strconv.FormatUint(block.Index, 10)))
	batch.Put([]byte(heightKey), []byte(strconv.FormatUint(block.Index+1, 10)))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write block %d: %w", block.Index, err)
	}

	s.height = block.Index + 1
	s.cache.Add(block.Index, block.Clone())
	s.log.Debug("block saved", zap.Uint64("index", block.Index), zap.String("hash", block.Hash))
	return nil
}

// UpdateBlock replaces the committed block at block.Index and moves its hash
// pointer.
func (s *LevelDBChainStore) UpdateBlock(block *blockchain.Block) error {
	if block == nil {
		return ErrNilBlock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	if block.Index >= s.height {
		return blockchain.IndexOutOfRangeError{Index: block.Index, Height: s.height}
	}

	old, err := s.getBlockUnsafe(block.Index)
	if err != nil {
		return err
	}
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Index, err)
	}

	batch := new(leveldb.Batch)
	if old.Hash != block.Hash {
		batch.Delete(hashKey(old.Hash))
	}
	batch.Put(blockKey(block.Index), data)
	batch.Put(hashKey(block.Hash), []byte(strconv.FormatUint(block.Index, 10)))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("rewrite block %d: %w", block.Index, err)
	}

	s.cache.Add(block.Index, block.Clone())
	return nil
}

func (s *LevelDBChainStore) GetBlockByIndex(index uint64) (*blockchain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if index >= s.height {
		return nil, blockchain.IndexOutOfRangeError{Index: index, Height: s.height}
	}
	block, err := s.getBlockUnsafe(index)
	if err != nil {
		return nil, err
	}
	return block.Clone(), nil
}

func (s *LevelDBChainStore) GetBlockByHash(hash string) (*blockchain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	v, err := s.db.Get(hashKey(hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("hash %s: %w", hash, ErrBlockNotFound)
	}
	if err != nil {
		return nil, err
	}
	index, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt hash pointer %q: %w", v, err)
	}
	block, err := s.getBlockUnsafe(index)
	if err != nil {
		return nil, err
	}
	return block.Clone(), nil
}

func (s *LevelDBChainStore) GetHeadBlock() (*blockchain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if s.height == 0 {
		return nil, nil
	}
	block, err := s.getBlockUnsafe(s.height - 1)
	if err != nil {
		return nil, err
	}
	return block.Clone(), nil
}

func (s *LevelDBChainStore) GetChainHeight() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, ErrClosed
	}
	return s.height, nil
}

func (s *LevelDBChainStore) GetChain() (*blockchain.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	blocks := make([]*blockchain.Block, 0, s.height)
	for i := uint64(0); i < s.height; i++ {
		data, err := snap.Get(blockKey(i), nil)
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		var block blockchain.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, fmt.Errorf("decode block %d: %w", i, err)
		}
		blocks = append(blocks, &block)
	}
	return &blockchain.Chain{Blocks: blocks}, nil
}

func (s *LevelDBChainStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.cache.Purge()
	s.log.Info("leveldb store closed")
	return err
}

// getBlockUnsafe reads through the cache - must be called with lock held.
// The returned block is shared with the cache and must not be mutated.
func (s *LevelDBChainStore) getBlockUnsafe(index uint64) (*blockchain.Block, error) {
	if v, ok := s.cache.Get(index); ok {
		return v.(*blockchain.Block), nil
	}

	data, err := s.db.Get(blockKey(index), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("block %d: %w", index, ErrBlockNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", index, err)
	}

	var block blockchain.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("decode block %d: %w", index, err)
	}
	s.cache.Add(index, &block)
	return &block, nil
}
