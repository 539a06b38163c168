// Package gossip implements the peer to peer protocol that propagates new
// blocks and reconciles divergent chains across connected nodes.
package gossip

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/ardanlabs/naivechain/foundation/blockchain/peer"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrShutdown is returned when a connection is offered to an engine that is
// shutting down.
var ErrShutdown = errors.New("gossip engine is shutting down")

// defaultSendQueue is the number of outbound messages that can be pending on
// a single connection before new messages are dropped.
const defaultSendQueue = 256

// =============================================================================

// Config represents the configuration required to start the engine.
type Config struct {
	State     *state.State
	Peers     *peer.PeerSet
	Dialer    *websocket.Dialer
	SendQueue int
	Metrics   *Metrics
	EvHandler state.EventHandler
}

// Engine runs the protocol for every live peer connection.
type Engine struct {
	state     *state.State
	peers     *peer.PeerSet
	dialer    *websocket.Dialer
	sendQueue int
	metrics   *Metrics
	evHandler state.EventHandler

	mu       sync.Mutex
	wg       sync.WaitGroup
	shutdown bool
}

// New constructs an engine for the specified state and peer set.
func New(cfg Config) *Engine {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	peers := cfg.Peers
	if peers == nil {
		peers = peer.NewPeerSet()
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	sendQueue := cfg.SendQueue
	if sendQueue <= 0 {
		sendQueue = defaultSendQueue
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics()
	}

	e := Engine{
		state:     cfg.State,
		peers:     peers,
		dialer:    dialer,
		sendQueue: sendQueue,
		metrics:   metrics,
		evHandler: ev,
	}

	if e.state != nil {
		e.metrics.ChainLength.Set(float64(e.state.RetrieveChainLength()))
	}

	return &e
}

// Shutdown closes every connection and waits for their loops to finish.
func (e *Engine) Shutdown() {
	e.evHandler("gossip: shutdown: started")
	defer e.evHandler("gossip: shutdown: completed")

	e.mu.Lock()
	e.shutdown = true
	conns := e.peers.Copy()
	e.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	e.wg.Wait()
}

// =============================================================================

// Connect dials the specified websocket address and serves the connection in
// its own goroutine. Only the dial is waited on.
func (e *Engine) Connect(ctx context.Context, address string) error {
	e.evHandler("gossip: Connect: dial: peer[%s]", address)

	ws, _, err := e.dialer.DialContext(ctx, address, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}

	go func() {
		if err := e.Serve(ws, address); err != nil {
			e.evHandler("gossip: Connect: peer[%s]: ERROR: %s", address, err)
		}
	}()

	return nil
}

// Serve runs the protocol on the specified transport until it closes. The
// connection is registered, asked for its latest block, and deregistered
// once either loop ends.
func (e *Engine) Serve(t Transport, host string) error {
	c := newConnection(t, host, e.sendQueue)

	if err := e.register(c); err != nil {
		t.Close()
		return err
	}
	defer e.wg.Done()

	e.evHandler("gossip: Serve: peer[%s]: id[%s]: ACTIVE", host, c.id)

	e.send(c, QueryLatest{})

	var g errgroup.Group
	g.Go(func() error {
		defer c.Close()
		return c.writeLoop()
	})
	g.Go(func() error {
		defer c.Close()
		return c.readLoop(e.handle)
	})
	err := g.Wait()

	e.peers.Remove(c)
	e.metrics.Peers.Set(float64(e.peers.Len()))

	e.evHandler("gossip: Serve: peer[%s]: id[%s]: CLOSED: %v", host, c.id, err)

	return err
}

// register adds the connection to the peer set unless the engine is
// shutting down.
func (e *Engine) register(c *connection) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return ErrShutdown
	}

	e.wg.Add(1)
	e.peers.Add(c)
	e.metrics.Peers.Set(float64(e.peers.Len()))

	return nil
}

// =============================================================================

// BroadcastLatest sends our latest block to every live peer. Every change to
// the chain is announced through here, so the chain length gauge is set too.
func (e *Engine) BroadcastLatest() {
	latest := e.state.RetrieveLatestBlock()
	e.metrics.ChainLength.Set(float64(latest.Index + 1))

	msg, err := Encode(ChainResponse{Blocks: []chain.Block{latest}})
	if err != nil {
		e.evHandler("gossip: BroadcastLatest: ERROR: %s", err)
		return
	}

	e.evHandler("gossip: BroadcastLatest: blk[%s]: peers[%d]", latest, e.peers.Len())

	for _, conn := range e.peers.Copy() {
		if !conn.Send(msg) {
			e.evHandler("gossip: BroadcastLatest: peer[%s]: WARNING: message dropped", conn.Host())
		}
	}
}

// send encodes and queues a message for a single connection.
func (e *Engine) send(c peer.Conn, msg Message) {
	data, err := Encode(msg)
	if err != nil {
		e.evHandler("gossip: send: peer[%s]: ERROR: %s", c.Host(), err)
		return
	}

	if !c.Send(data) {
		e.evHandler("gossip: send: peer[%s]: WARNING: %s dropped", c.Host(), msg.Type())
	}
}

// handle processes a single message received on a connection. Malformed
// messages are dropped without a reply.
func (e *Engine) handle(c *connection, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		e.metrics.MessagesDropped.Add(1)
		e.evHandler("gossip: handle: peer[%s]: DROPPED: %s", c.host, err)
		return
	}

	e.metrics.MessagesReceived.With("type", msg.Type().String()).Add(1)
	e.evHandler("gossip: handle: peer[%s]: received %s", c.host, msg.Type())

	switch m := msg.(type) {
	case QueryLatest:
		e.send(c, ChainResponse{Blocks: []chain.Block{e.state.RetrieveLatestBlock()}})

	case QueryAll:
		e.send(c, ChainResponse{Blocks: e.state.RetrieveChain()})

	case ChainResponse:
		e.reconcile(c, m.Blocks)
	}
}

// reconcile runs the reconciliation decision and performs the network side
// of it: announce to everyone, or ask the sender for its full chain.
func (e *Engine) reconcile(c *connection, blocks []chain.Block) {
	outcome, err := e.state.Reconcile(blocks)
	e.metrics.Reconciliations.With("outcome", outcome.String()).Add(1)

	if err != nil {
		e.evHandler("gossip: reconcile: peer[%s]: %s: %s", c.host, outcome, err)
		return
	}

	e.evHandler("gossip: reconcile: peer[%s]: %s", c.host, outcome)

	switch {
	case outcome.Announce():
		e.BroadcastLatest()

	case outcome == state.OutcomeQueryAll:
		e.send(c, QueryAll{})
	}
}
