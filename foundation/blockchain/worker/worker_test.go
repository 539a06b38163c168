package worker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/naivechain/foundation/blockchain/gossip"
	"github.com/ardanlabs/naivechain/foundation/blockchain/peer"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/ardanlabs/naivechain/foundation/blockchain/worker"
	"github.com/fortytw2/leaktest"
	"github.com/gorilla/websocket"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newNode(t *testing.T) (*state.State, *gossip.Engine) {
	ev := func(v string, args ...any) { t.Logf("\t\t"+v, args...) }

	peers := peer.NewPeerSet()
	st := state.New(state.Config{KnownPeers: peers, EvHandler: ev})
	eng := gossip.New(gossip.Config{State: st, Peers: peers, EvHandler: ev})

	return st, eng
}

// listen starts a websocket endpoint that records every message a node
// sends to it.
func listen(t *testing.T) (string, chan gossip.Message, func()) {
	msgs := make(chan gossip.Message, 16)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := gossip.Decode(data)
			if err != nil {
				t.Errorf("\t%s\tShould receive valid messages: %v", failed, err)
				return
			}
			msgs <- msg
		}
	}))

	return "ws" + strings.TrimPrefix(srv.URL, "http"), msgs, srv.Close
}

func next(t *testing.T, msgs chan gossip.Message) gossip.Message {
	t.Helper()

	select {
	case msg := <-msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("\t%s\tShould receive a message in time.", failed)
	}
	return nil
}

// =============================================================================

func Test_Shutdown(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to start and stop the background workflows.")
	{
		t.Logf("\tTest 0:\tWhen running a worker with no peers.")
		{
			st, eng := newNode(t)
			w := worker.Run(st, eng, nil)

			if st.Worker != w {
				t.Fatalf("\t%s\tTest 0:\tShould register the worker with the state.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould register the worker with the state.", success)

			if _, err := st.MineNewBlock("block"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
			}

			st.Shutdown()
			eng.Shutdown()
			t.Logf("\t%s\tTest 0:\tShould shut down cleanly.", success)
		}
	}
}

func Test_ConnectAndAnnounce(t *testing.T) {
	t.Log("Given the need to dial peers and announce new blocks.")
	{
		t.Logf("\tTest 0:\tWhen a node is told to connect and then mines.")
		{
			address, msgs, stop := listen(t)
			defer stop()

			st, eng := newNode(t)
			worker.Run(st, eng, func(v string, args ...any) { t.Logf("\t\t"+v, args...) })
			defer eng.Shutdown()
			defer st.Shutdown()

			st.ConnectToPeer(address)

			if _, ok := next(t, msgs).(gossip.QueryLatest); !ok {
				t.Fatalf("\t%s\tTest 0:\tShould open the connection with a latest query.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould open the connection with a latest query.", success)

			blk, err := st.MineNewBlock("announced")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
			}

			resp, ok := next(t, msgs).(gossip.ChainResponse)
			if !ok || len(resp.Blocks) != 1 || resp.Blocks[0] != blk {
				t.Fatalf("\t%s\tTest 0:\tShould announce the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould announce the mined block.", success)
		}

		t.Logf("\tTest 1:\tWhen a node is told to connect to an address nobody listens on.")
		{
			st, eng := newNode(t)
			worker.Run(st, eng, nil)

			st.ConnectToPeer("ws://127.0.0.1:1")
			time.Sleep(100 * time.Millisecond)

			if len(st.RetrievePeers()) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould not register a peer.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not register a peer.", success)

			st.Shutdown()
			eng.Shutdown()
			t.Logf("\t%s\tTest 1:\tShould keep running and shut down cleanly.", success)
		}
	}
}
