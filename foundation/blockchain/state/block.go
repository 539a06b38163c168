package state

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
)

// AppendBlock takes a block, validates it against the latest block and if
// that passes, adds the block to the end of the chain. On error the chain
// is not modified.
func (s *State) AppendBlock(block chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendBlock(block)
}

// appendBlock performs the append. The caller must hold the lock.
func (s *State) appendBlock(block chain.Block) error {
	s.evHandler("state: appendBlock: validate: blk[%s]", block)

	if err := chain.ValidateNextBlock(block, s.latest()); err != nil {
		s.evHandler("state: appendBlock: REJECTED: blk[%s]: %s", block, err)
		return err
	}

	// Build a new slice so readers holding the previous one never observe
	// a change underneath them.
	blocks := make([]chain.Block, len(s.blocks), len(s.blocks)+1)
	copy(blocks, s.blocks)
	s.blocks = append(blocks, block)

	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block chain.Block) {
	blockJSON, err := json.Marshal(chain.NewBlockData(block))
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"length":%d,"block":%s}`, len(s.blocks), string(blockJSON))
}
