package ledger

import (
	"qledger/blockchain"
)

// View is the ledger as seen from inside Exclusive. It may replace committed
// blocks, which nothing else can, and the caller is expected to put back what
// it changed before returning.
type View struct {
	l *Ledger
}

// Exclusive runs fn with the ledger locked.
func (l *Ledger) Exclusive(fn func(v *View) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(&View{l: l})
}

func (v *View) Block(index uint64) (*blockchain.Block, error) {
	return v.l.store.GetBlockByIndex(index)
}

func (v *View) Height() (uint64, error) {
	return v.l.store.GetChainHeight()
}

// Replace overwrites the block at block.Index as is; nothing is rehashed.
func (v *View) Replace(block *blockchain.Block) error {
	return v.l.store.UpdateBlock(block)
}

func (v *View) Validate() error {
	return v.l.validateLocked()
}
