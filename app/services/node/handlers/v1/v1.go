// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/naivechain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/naivechain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/naivechain/foundation/blockchain/gossip"
	"github.com/ardanlabs/naivechain/foundation/blockchain/state"
	"github.com/ardanlabs/naivechain/foundation/events"
	"github.com/ardanlabs/naivechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Engine *gossip.Engine
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/latest", pbl.LatestBlock)
	app.Handle(http.MethodPost, version, "/blocks/mine", pbl.MineBlock)
	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodPost, version, "/peers", pbl.AddPeer)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Engine: cfg.Engine,
		WS:     websocket.Upgrader{},
	}

	// Peers dial the bare host, so the protocol endpoint lives at the root.
	app.Handle(http.MethodGet, "", "/", prv.Peer)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
