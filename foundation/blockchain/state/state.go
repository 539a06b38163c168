// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/ardanlabs/naivechain/foundation/blockchain/peer"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for announcing blocks and dialing peers.
type Worker interface {
	Shutdown()
	SignalAnnounceLatest()
	SignalConnectPeer(address string)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the blockchain held in memory. The chain is replaced
// wholesale, never edited in place, so a slice handed out under the lock
// stays valid after it is released.
type State struct {
	mu        sync.RWMutex
	host      string
	evHandler EventHandler
	blocks    []chain.Block

	knownPeers *peer.PeerSet

	Worker Worker
}

// New constructs a new blockchain seeded with the genesis block.
func New(cfg Config) *State {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		host:       cfg.Host,
		evHandler:  ev,
		blocks:     []chain.Block{chain.Genesis()},
		knownPeers: knownPeers,

		// The worker package will replace this when worker.Run is called.
		Worker: nopWorker{},
	}

	return &state
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all announcing and dialing activity.
	s.Worker.Shutdown()

	return nil
}

// latest returns the last block of the chain. The caller must hold the lock.
func (s *State) latest() chain.Block {
	return s.blocks[len(s.blocks)-1]
}

// =============================================================================

// nopWorker is used until a real worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()                {}
func (nopWorker) SignalAnnounceLatest()    {}
func (nopWorker) SignalConnectPeer(string) {}
