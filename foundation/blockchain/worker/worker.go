// Package worker implements block announcement and peer dialing for the
// blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/naivechain/foundation/blockchain/gossip"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
)

// maxConnectRequests represents the max number of pending dial requests
// that can be outstanding before new requests are dropped.
const maxConnectRequests = 100

// dialTimeout bounds how long a single dial can take.
const dialTimeout = 10 * time.Second

// =============================================================================

// Worker manages the background workflows for the blockchain.
type Worker struct {
	state     *state.State
	engine    *gossip.Engine
	wg        sync.WaitGroup
	shut      chan struct{}
	announce  chan bool
	connect   chan string
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, engine *gossip.Engine, evHandler state.EventHandler) *Worker {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	w := Worker{
		state:     st,
		engine:    engine,
		shut:      make(chan struct{}),
		announce:  make(chan bool, 1),
		connect:   make(chan string, maxConnectRequests),
		evHandler: ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.announceOperations,
		w.connectOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalAnnounceLatest starts an announce operation. If there is already a
// signal pending in the channel, just return since the pending announce will
// carry the latest block when it runs.
func (w *Worker) SignalAnnounceLatest() {
	select {
	case w.announce <- true:
		w.evHandler("worker: SignalAnnounceLatest: announce signaled")
	default:
	}
}

// SignalConnectPeer queues a dial to the specified address. If
// maxConnectRequests signals exist in the channel, the request is dropped.
func (w *Worker) SignalConnectPeer(address string) {
	select {
	case w.connect <- address:
		w.evHandler("worker: SignalConnectPeer: connect signaled: peer[%s]", address)
	default:
		w.evHandler("worker: SignalConnectPeer: queue full, peer[%s] won't be dialed", address)
	}
}

// =============================================================================

// announceOperations handles telling every peer about our latest block.
func (w *Worker) announceOperations() {
	w.evHandler("worker: announceOperations: G started")
	defer w.evHandler("worker: announceOperations: G completed")

	for {
		select {
		case <-w.announce:
			if !w.isShutdown() {
				w.runAnnounceOperation()
			}
		case <-w.shut:
			w.evHandler("worker: announceOperations: received shut signal")
			return
		}
	}
}

// connectOperations handles dialing new peers.
func (w *Worker) connectOperations() {
	w.evHandler("worker: connectOperations: G started")
	defer w.evHandler("worker: connectOperations: G completed")

	for {
		select {
		case address := <-w.connect:
			if !w.isShutdown() {
				w.runConnectOperation(address)
			}
		case <-w.shut:
			w.evHandler("worker: connectOperations: received shut signal")
			return
		}
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// =============================================================================

// runAnnounceOperation broadcasts the latest block to all peers.
func (w *Worker) runAnnounceOperation() {
	w.evHandler("worker: runAnnounceOperation: started")
	defer w.evHandler("worker: runAnnounceOperation: completed")

	w.engine.BroadcastLatest()
}

// runConnectOperation dials the address. A failed dial is logged and
// abandoned.
func (w *Worker) runConnectOperation(address string) {
	w.evHandler("worker: runConnectOperation: started: peer[%s]", address)
	defer w.evHandler("worker: runConnectOperation: completed: peer[%s]", address)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	// Abandon the dial if a shutdown is signaled while it is in flight.
	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := w.engine.Connect(ctx, address); err != nil {
		w.evHandler("worker: runConnectOperation: peer[%s]: ERROR: %s", address, err)
	}
}
