// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/naivechain/foundation/blockchain/gossip"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/ardanlabs/naivechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Engine *gossip.Engine
	WS     websocket.Upgrader
}

// Peer upgrades the request to a websocket and runs the gossip protocol on
// it until either side closes the connection.
func (h Handlers) Peer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.Log.Infow("peer connected", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr)

	if err := h.Engine.Serve(c, r.RemoteAddr); err != nil {
		h.Log.Infow("peer disconnected", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr, "ERROR", err)
	}

	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
