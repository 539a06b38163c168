// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/naivechain/business/sys/validate"
	v1 "github.com/ardanlabs/naivechain/business/web/v1"
	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/ardanlabs/naivechain/foundation/events"
	"github.com/ardanlabs/naivechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch, err := h.Evts.Acquire(v.TraceID)
	if err != nil {
		return nil
	}
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Blocks returns the entire chain held by the node.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveChain()

	resp := make([]chain.BlockData, len(blocks))
	for i, block := range blocks {
		resp[i] = chain.NewBlockData(block)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// LatestBlock returns the last block of the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block := h.State.RetrieveLatestBlock()
	return web.Respond(ctx, w, chain.NewBlockData(block), http.StatusOK)
}

// MineBlock builds a block carrying the provided data on top of the chain and
// announces it to every peer.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nb newBlock
	if err := web.Decode(r, &nb); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(nb); err != nil {
		return err
	}

	block, err := h.State.MineNewBlock(*nb.Data)
	if err != nil {
		return v1.NewRequestError(err, http.StatusConflict)
	}

	h.Log.Infow("mine block", "traceid", v.TraceID, "block", block)

	return web.Respond(ctx, w, chain.NewBlockData(block), http.StatusOK)
}

// Peers returns the hosts of every live peer connection.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrievePeers(), http.StatusOK)
}

// AddPeer asks the node to dial the provided websocket address. The dial
// happens in the background so success only means the request was queued.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var np newPeer
	if err := web.Decode(r, &np); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(np); err != nil {
		return err
	}

	h.Log.Infow("add peer", "traceid", v.TraceID, "peer", np.Peer)
	h.State.ConnectToPeer(np.Peer)

	return web.Respond(ctx, w, status{Status: "connecting"}, http.StatusAccepted)
}
