package state

import (
	"time"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
)

// MineNewBlock creates the next block for the specified data, adds it to the
// chain, and signals the worker to announce the new latest block to every
// peer. If the block is rejected the error is returned and nothing is
// announced, so the caller still owns the data and can try again.
func (s *State) MineNewBlock(data string) (chain.Block, error) {
	s.evHandler("state: MineNewBlock: started")
	defer s.evHandler("state: MineNewBlock: completed")

	block, err := s.mineNewBlock(data)
	if err != nil {
		return chain.Block{}, err
	}

	s.evHandler("state: MineNewBlock: signal announce: blk[%s]", block)
	s.Worker.SignalAnnounceLatest()

	return block, nil
}

// mineNewBlock reads the latest block, builds the next block and appends it
// under one lock so a reconciliation can't slip in between.
func (s *State) mineNewBlock(data string) (chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block := chain.NewBlock(s.latest(), float64(time.Now().UnixMilli())/1000, data)
	if err := s.appendBlock(block); err != nil {
		return chain.Block{}, err
	}

	return block, nil
}
