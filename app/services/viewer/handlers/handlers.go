// Package handlers contains the full set of handler functions and routes
// supported by the viewer.
package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/ardanlabs/naivechain/business/web/v1/mid"
	"github.com/ardanlabs/naivechain/foundation/web"
	"go.uber.org/zap"
)

// UIMux constructs an http.Handler with all application routes defined. The
// page it serves follows the events stream of the node at nodeHost.
func UIMux(build string, nodeHost string, shutdown chan os.Signal, log *zap.SugaredLogger) (*web.App, error) {
	app := web.NewApp(
		shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
	)

	// Register the index page for the website.
	ig, err := newIndex(build, nodeHost)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	return app, nil
}
