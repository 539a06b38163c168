package gossip_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/ardanlabs/naivechain/foundation/blockchain/gossip"
	"github.com/ardanlabs/naivechain/foundation/blockchain/peer"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/fortytw2/leaktest"
	"github.com/go-kit/kit/metrics/generic"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

const wait = 2 * time.Second

// pipe is an in-memory transport pair. Closing either end closes both.
type pipe struct {
	done chan struct{}
	once sync.Once
}

type end struct {
	p   *pipe
	in  chan []byte
	out chan []byte
}

func newPipe() (*end, *end) {
	p := pipe{done: make(chan struct{})}
	a := make(chan []byte, 64)
	b := make(chan []byte, 64)
	return &end{p: &p, in: a, out: b}, &end{p: &p, in: b, out: a}
}

func (e *end) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-e.in:
		return websocket.TextMessage, msg, nil
	case <-e.p.done:
		return 0, nil, io.EOF
	}
}

func (e *end) WriteMessage(_ int, data []byte) error {
	select {
	case e.out <- data:
		return nil
	case <-e.p.done:
		return io.ErrClosedPipe
	}
}

func (e *end) Close() error {
	e.p.once.Do(func() { close(e.p.done) })
	return nil
}

// next returns the next message written to this end by the engine.
func (e *end) next(t *testing.T) gossip.Message {
	t.Helper()

	select {
	case data := <-e.in:
		msg, err := gossip.Decode(data)
		if err != nil {
			t.Fatalf("\t%s\tShould receive a valid message: %v", failed, err)
		}
		return msg
	case <-time.After(wait):
		t.Fatalf("\t%s\tShould receive a message in time.", failed)
	}
	return nil
}

// quiet verifies the engine wrote nothing to this end.
func (e *end) quiet(t *testing.T) {
	t.Helper()

	select {
	case data := <-e.in:
		t.Fatalf("\t%s\tShould not receive a message, got %s.", failed, data)
	case <-time.After(100 * time.Millisecond):
	}
}

func (e *end) send(t *testing.T, msg gossip.Message) {
	t.Helper()

	data, err := gossip.Encode(msg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to encode the message: %v", failed, err)
	}
	e.out <- data
}

// =============================================================================

// extend returns a copy of blocks with n new valid blocks appended.
func extend(blocks []chain.Block, n int, data string) []chain.Block {
	out := make([]chain.Block, len(blocks), len(blocks)+n)
	copy(out, blocks)
	for i := 0; i < n; i++ {
		prev := out[len(out)-1]
		out = append(out, chain.NewBlock(prev, prev.TimeStamp+1, data))
	}
	return out
}

type node struct {
	state  *state.State
	peers  *peer.PeerSet
	engine *gossip.Engine
}

func newNode(t *testing.T) node {
	peers := peer.NewPeerSet()
	st := state.New(state.Config{KnownPeers: peers})
	eng := gossip.New(gossip.Config{
		State:     st,
		Peers:     peers,
		SendQueue: 16,
		EvHandler: func(v string, args ...any) { t.Logf("\t\t"+v, args...) },
	})

	return node{state: st, peers: peers, engine: eng}
}

// attach serves one end of a pipe on the node and returns the other end
// after consuming the initial query for the latest block.
func (n node) attach(t *testing.T) (*end, chan error) {
	t.Helper()

	local, remote := newPipe()

	errs := make(chan error, 1)
	go func() {
		errs <- n.engine.Serve(local, "pipe")
	}()

	if _, ok := remote.next(t).(gossip.QueryLatest); !ok {
		t.Fatalf("\t%s\tShould ask a new peer for its latest block.", failed)
	}

	return remote, errs
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// =============================================================================

func Test_Queries(t *testing.T) {
	n := newNode(t)
	defer n.engine.Shutdown()

	for i := 0; i < 2; i++ {
		if _, err := n.state.MineNewBlock("block"); err != nil {
			t.Fatalf("Should be able to mine a block: %v", err)
		}
	}

	t.Log("Given the need to answer queries from peers.")
	{
		t.Logf("\tTest 0:\tWhen a peer connects and asks.")
		{
			remote, _ := n.attach(t)
			t.Logf("\t%s\tTest 0:\tShould ask the new peer for its latest block.", success)

			remote.send(t, gossip.QueryLatest{})
			resp, ok := remote.next(t).(gossip.ChainResponse)
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould answer a latest query with a chain response.", failed)
			}
			exp := []chain.Block{n.state.RetrieveLatestBlock()}
			if diff := cmp.Diff(exp, resp.Blocks); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould answer with exactly the latest block, diff:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould answer with exactly the latest block.", success)

			remote.send(t, gossip.QueryAll{})
			resp, ok = remote.next(t).(gossip.ChainResponse)
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould answer a full query with a chain response.", failed)
			}
			if diff := cmp.Diff(n.state.RetrieveChain(), resp.Blocks); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould answer with the full chain, diff:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould answer with the full chain.", success)
		}
	}
}

func Test_Reconcile(t *testing.T) {
	t.Log("Given the need to reconcile chains received from peers.")
	{
		t.Logf("\tTest 0:\tWhen a peer sends the block that extends our chain.")
		{
			n := newNode(t)
			remote, _ := n.attach(t)
			other, _ := n.attach(t)

			blocks := extend(n.state.RetrieveChain(), 1, "next")
			remote.send(t, gossip.ChainResponse{Blocks: blocks[1:]})

			for i, e := range []*end{remote, other} {
				resp, ok := e.next(t).(gossip.ChainResponse)
				if !ok || len(resp.Blocks) != 1 || resp.Blocks[0] != blocks[1] {
					t.Fatalf("\t%s\tTest 0:\tShould announce the new block to peer %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould announce the new block to every peer.", success)

			if diff := cmp.Diff(blocks, n.state.RetrieveChain()); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould append the block, diff:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould append the block.", success)

			n.engine.Shutdown()
		}

		t.Logf("\tTest 1:\tWhen a peer sends only the tip of a longer chain.")
		{
			n := newNode(t)
			remote, _ := n.attach(t)
			other, _ := n.attach(t)

			blocks := extend(n.state.RetrieveChain(), 3, "fork")
			remote.send(t, gossip.ChainResponse{Blocks: blocks[3:]})

			if _, ok := remote.next(t).(gossip.QueryAll); !ok {
				t.Fatalf("\t%s\tTest 1:\tShould ask the sender for its full chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould ask the sender for its full chain.", success)

			other.quiet(t)
			t.Logf("\t%s\tTest 1:\tShould not query any other peer.", success)

			remote.send(t, gossip.ChainResponse{Blocks: blocks})
			for i, e := range []*end{remote, other} {
				resp, ok := e.next(t).(gossip.ChainResponse)
				if !ok || len(resp.Blocks) != 1 || resp.Blocks[0] != blocks[3] {
					t.Fatalf("\t%s\tTest 1:\tShould announce the new latest block to peer %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould announce the new latest block to every peer.", success)

			if diff := cmp.Diff(blocks, n.state.RetrieveChain()); diff != "" {
				t.Fatalf("\t%s\tTest 1:\tShould replace the chain, diff:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 1:\tShould replace the chain.", success)

			n.engine.Shutdown()
		}

		t.Logf("\tTest 2:\tWhen a peer sends a chain that is not longer.")
		{
			n := newNode(t)
			if _, err := n.state.MineNewBlock("ours"); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to mine a block: %v", failed, err)
			}
			remote, _ := n.attach(t)

			blocks := extend([]chain.Block{chain.Genesis()}, 1, "theirs")
			remote.send(t, gossip.ChainResponse{Blocks: blocks})
			remote.quiet(t)
			t.Logf("\t%s\tTest 2:\tShould not reply.", success)

			if n.state.RetrieveLatestBlock().Data != "ours" {
				t.Fatalf("\t%s\tTest 2:\tShould keep our chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould keep our chain.", success)

			n.engine.Shutdown()
		}

		t.Logf("\tTest 3:\tWhen a peer sends a longer chain that is invalid.")
		{
			n := newNode(t)
			remote, _ := n.attach(t)

			blocks := extend(n.state.RetrieveChain(), 3, "bad")
			blocks[2].Data = "tampered"
			remote.send(t, gossip.ChainResponse{Blocks: blocks})
			remote.quiet(t)
			t.Logf("\t%s\tTest 3:\tShould not reply.", success)

			if n.state.RetrieveChainLength() != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould keep our chain.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould keep our chain.", success)

			n.engine.Shutdown()
		}
	}
}

func Test_Malformed(t *testing.T) {
	n := newNode(t)
	defer n.engine.Shutdown()

	t.Log("Given the need to survive malformed messages.")
	{
		t.Logf("\tTest 0:\tWhen a peer sends garbage.")
		{
			remote, _ := n.attach(t)

			remote.out <- []byte(`{"type":2,"data":"not blocks"}`)
			remote.out <- []byte(`garbage`)
			remote.quiet(t)
			t.Logf("\t%s\tTest 0:\tShould drop the messages without a reply.", success)

			remote.send(t, gossip.QueryLatest{})
			if _, ok := remote.next(t).(gossip.ChainResponse); !ok {
				t.Fatalf("\t%s\tTest 0:\tShould keep the connection alive.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the connection alive.", success)

			if n.state.RetrieveChainLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the chain untouched.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the chain untouched.", success)
		}
	}
}

func Test_Deregister(t *testing.T) {
	n := newNode(t)
	defer n.engine.Shutdown()

	t.Log("Given the need to forget peers that go away.")
	{
		t.Logf("\tTest 0:\tWhen the remote end closes.")
		{
			remote, errs := n.attach(t)
			if n.peers.Len() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould register the peer.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould register the peer.", success)

			remote.Close()

			select {
			case <-errs:
			case <-time.After(wait):
				t.Fatalf("\t%s\tTest 0:\tShould stop serving the connection.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould stop serving the connection.", success)

			if n.peers.Len() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould deregister the peer.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould deregister the peer.", success)

			n.engine.BroadcastLatest()
			t.Logf("\t%s\tTest 0:\tShould be able to broadcast with no peers.", success)
		}
	}
}

func Test_Shutdown(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to stop every connection on shutdown.")
	{
		t.Logf("\tTest 0:\tWhen the engine shuts down with live peers.")
		{
			n := newNode(t)

			var errs []chan error
			for i := 0; i < 3; i++ {
				_, ch := n.attach(t)
				errs = append(errs, ch)
			}

			n.engine.Shutdown()

			for _, ch := range errs {
				if err := <-ch; err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould stop connections cleanly: %v", failed, err)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould stop connections cleanly.", success)

			if n.peers.Len() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have no peers left.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have no peers left.", success)

			local, _ := newPipe()
			if err := n.engine.Serve(local, "late"); !errors.Is(err, gossip.ErrShutdown) {
				t.Fatalf("\t%s\tTest 0:\tShould refuse new connections: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse new connections.", success)
		}
	}
}

func Test_ChainLengthGauge(t *testing.T) {
	peers := peer.NewPeerSet()
	st := state.New(state.Config{KnownPeers: peers})

	gauge := generic.NewGauge("chain_length")
	metrics := gossip.NopMetrics()
	metrics.ChainLength = gauge

	eng := gossip.New(gossip.Config{State: st, Peers: peers, Metrics: metrics})
	defer eng.Shutdown()

	n := node{state: st, peers: peers, engine: eng}

	t.Log("Given the need to report the chain length.")
	{
		t.Logf("\tTest 0:\tWhen the engine starts on a fresh node.")
		{
			if v := gauge.Value(); v != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould report the genesis block, got %v.", failed, v)
			}
			t.Logf("\t%s\tTest 0:\tShould report the genesis block.", success)
		}

		t.Logf("\tTest 1:\tWhen a mined block is announced.")
		{
			if _, err := st.MineNewBlock("mined"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine a block: %v", failed, err)
			}
			eng.BroadcastLatest()

			if v := gauge.Value(); v != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould report the mined block, got %v.", failed, v)
			}
			t.Logf("\t%s\tTest 1:\tShould report the mined block.", success)
		}

		t.Logf("\tTest 2:\tWhen a peer's longer chain replaces ours.")
		{
			remote, _ := n.attach(t)

			remote.send(t, gossip.ChainResponse{Blocks: extend([]chain.Block{chain.Genesis()}, 4, "peer")})
			if _, ok := remote.next(t).(gossip.ChainResponse); !ok {
				t.Fatalf("\t%s\tTest 2:\tShould announce the new latest block.", failed)
			}

			if v := gauge.Value(); v != 5 {
				t.Fatalf("\t%s\tTest 2:\tShould report the replaced chain, got %v.", failed, v)
			}
			t.Logf("\t%s\tTest 2:\tShould report the replaced chain.", success)
		}
	}
}

// =============================================================================

func Test_Websocket(t *testing.T) {
	a := newNode(t)
	b := newNode(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		a.engine.Serve(ws, r.RemoteAddr)
	}))
	defer srv.Close()

	for i := 0; i < 3; i++ {
		if _, err := a.state.MineNewBlock("from a"); err != nil {
			t.Fatalf("Should be able to mine a block: %v", err)
		}
	}

	t.Log("Given the need to replicate chains between nodes over websockets.")
	{
		t.Logf("\tTest 0:\tWhen a fresh node connects to a node with a longer chain.")
		{
			ctx, cancel := context.WithTimeout(context.Background(), wait)
			defer cancel()

			address := "ws" + strings.TrimPrefix(srv.URL, "http")
			if err := b.engine.Connect(ctx, address); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to connect: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to connect.", success)

			synced := func() bool {
				return cmp.Equal(a.state.RetrieveChain(), b.state.RetrieveChain())
			}
			if !waitFor(t, synced) {
				t.Fatalf("\t%s\tTest 0:\tShould adopt the longer chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould adopt the longer chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the connected node mines a new block.")
		{
			blk, err := b.state.MineNewBlock("from b")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine a block: %v", failed, err)
			}
			b.engine.BroadcastLatest()

			if !waitFor(t, func() bool { return a.state.RetrieveLatestBlock() == blk }) {
				t.Fatalf("\t%s\tTest 1:\tShould propagate the block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould propagate the block.", success)
		}
	}

	b.engine.Shutdown()
	a.engine.Shutdown()
}
