package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
)

// Set of errors returned when a received chain can't replace ours.
var (
	ErrInvalidChain = errors.New("received chain is invalid")
	ErrNotLonger    = errors.New("received chain is not longer than the current chain")
)

// ReplaceChain corrects an identified fork. The received chain replaces the
// current chain only if it is valid and strictly longer. On error the chain
// is not modified.
func (s *State) ReplaceChain(blocks []chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replaceChain(blocks)
}

// replaceChain performs the replacement. The caller must hold the lock.
func (s *State) replaceChain(blocks []chain.Block) error {
	s.evHandler("state: replaceChain: validate: received[%d]: current[%d]", len(blocks), len(s.blocks))

	if err := chain.ValidateChain(blocks); err != nil {
		s.evHandler("state: replaceChain: REJECTED: %s", err)
		return fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}

	if len(blocks) <= len(s.blocks) {
		s.evHandler("state: replaceChain: REJECTED: received[%d]: current[%d]: not longer", len(blocks), len(s.blocks))
		return fmt.Errorf("%w: got %d, have %d", ErrNotLonger, len(blocks), len(s.blocks))
	}

	cpy := make([]chain.Block, len(blocks))
	copy(cpy, blocks)
	s.blocks = cpy

	s.evHandler("state: replaceChain: REPLACED: latest[%s]", s.latest())
	s.blockEvent(s.latest())

	return nil
}
