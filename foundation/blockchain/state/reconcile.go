package state

import (
	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
)

// Outcome represents the decision made for a set of blocks received
// from a peer.
type Outcome int

// Set of outcomes for Reconcile.
const (
	OutcomeIgnored  Outcome = iota // Our chain is at least as long.
	OutcomeAppended                // The peer's latest block extended our chain.
	OutcomeReplaced                // The peer's chain replaced ours.
	OutcomeQueryAll                // The sender must be asked for its full chain.
	OutcomeRejected                // The blocks failed validation.
)

var outcomes = [...]string{
	OutcomeIgnored:  "ignored",
	OutcomeAppended: "appended",
	OutcomeReplaced: "replaced",
	OutcomeQueryAll: "query-all",
	OutcomeRejected: "rejected",
}

// String implements the fmt.Stringer interface.
func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomes) {
		return "unknown"
	}
	return outcomes[o]
}

// Announce reports whether the outcome changed the latest block, which means
// every peer must be told about it.
func (o Outcome) Announce() bool {
	return o == OutcomeAppended || o == OutcomeReplaced
}

// =============================================================================

// Reconcile decides what to do with the blocks a peer sent us. Our latest
// block is read, the decision made, and the chain changed under a single
// lock. Any peer serving a longer valid chain overrides our view.
func (s *State) Reconcile(blocks []chain.Block) (Outcome, error) {
	if len(blocks) == 0 {
		s.evHandler("state: Reconcile: received an empty chain")
		return OutcomeIgnored, nil
	}

	latestReceived := blocks[len(blocks)-1]
	if err := chain.ValidateBlockStructure(latestReceived); err != nil {
		s.evHandler("state: Reconcile: REJECTED: %s", err)
		return OutcomeRejected, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latestHeld := s.latest()
	if latestReceived.Index <= latestHeld.Index {
		s.evHandler("state: Reconcile: received chain is not longer: held[%d]: received[%d]", latestHeld.Index, latestReceived.Index)
		return OutcomeIgnored, nil
	}

	s.evHandler("state: Reconcile: chain possibly behind: held[%d]: received[%d]", latestHeld.Index, latestReceived.Index)

	switch {
	case latestHeld.Hash == latestReceived.PrevHash:
		if err := s.appendBlock(latestReceived); err != nil {
			return OutcomeRejected, err
		}
		return OutcomeAppended, nil

	case len(blocks) == 1:
		s.evHandler("state: Reconcile: need the full chain from the peer")
		return OutcomeQueryAll, nil

	default:
		s.evHandler("state: Reconcile: received chain is longer, replacing")
		if err := s.replaceChain(blocks); err != nil {
			return OutcomeRejected, err
		}
		return OutcomeReplaced, nil
	}
}
