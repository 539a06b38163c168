package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/naivechain/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing so
// browser viewers hosted elsewhere can read the chain and mine blocks.
func Cors(origin string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
