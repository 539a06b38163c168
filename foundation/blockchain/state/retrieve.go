package state

import (
	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/ardanlabs/naivechain/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() chain.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latest()
}

// RetrieveChain returns a copy of the current chain.
func (s *State) RetrieveChain() []chain.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]chain.Block, len(s.blocks))
	copy(blocks, s.blocks)

	return blocks
}

// RetrieveChainLength returns the number of blocks in the current chain.
func (s *State) RetrieveChainLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blocks)
}

// RetrievePeers returns the addresses of the peers this node is connected to.
func (s *State) RetrievePeers() []string {
	return s.knownPeers.Hosts()
}

// RetrieveStatus returns the current status of the node.
func (s *State) RetrieveStatus() peer.Status {
	latest := s.RetrieveLatestBlock()

	return peer.Status{
		LatestBlockHash:  latest.Hash,
		LatestBlockIndex: latest.Index,
		KnownPeers:       s.RetrievePeers(),
	}
}
