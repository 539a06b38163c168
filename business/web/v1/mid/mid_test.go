package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/naivechain/business/sys/validate"
	v1 "github.com/ardanlabs/naivechain/business/web/v1"
	"github.com/ardanlabs/naivechain/business/web/v1/mid"
	"github.com/ardanlabs/naivechain/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Errors(t *testing.T) {
	log := zap.NewNop().Sugar()

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(nil),
		mid.Cors("*"),
		mid.Panics(),
	)

	routes := map[string]web.Handler{
		"/ok": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, "ok", http.StatusOK)
		},
		"/validation": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var req struct {
				Data *string `json:"data" validate:"required"`
			}
			return validate.Check(req)
		},
		"/request": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return v1.NewRequestError(errors.New("block rejected"), http.StatusConflict)
		},
		"/unknown": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return errors.New("database on fire")
		},
		"/panic": func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			panic("boom")
		},
	}
	for path, h := range routes {
		app.Handle(http.MethodGet, "", path, h)
	}

	tt := []struct {
		path   string
		status int
		error  string
		fields map[string]string
	}{
		{"/ok", http.StatusOK, "", nil},
		{"/validation", http.StatusBadRequest, "data validation error", map[string]string{"data": "data is a required field"}},
		{"/request", http.StatusConflict, "block rejected", nil},
		{"/unknown", http.StatusInternalServerError, "Internal Server Error", nil},
		{"/panic", http.StatusInternalServerError, "Internal Server Error", nil},
	}

	t.Log("Given the need to render handler errors uniformly.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen calling %s.", testID, tst.path)
			{
				r := httptest.NewRequest(http.MethodGet, tst.path, nil)
				w := httptest.NewRecorder()
				app.ServeHTTP(w, r)

				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive status %d, got %d.", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive status %d.", success, testID, tst.status)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the CORS headers.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould set the CORS headers.", success, testID)

				if tst.error == "" {
					continue
				}

				var er v1.ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&er); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error: %v", failed, testID, err)
				}
				if er.Error != tst.error {
					t.Fatalf("\t%s\tTest %d:\tShould get error %q, got %q.", failed, testID, tst.error, er.Error)
				}
				for k, v := range tst.fields {
					if er.Fields[k] != v {
						t.Fatalf("\t%s\tTest %d:\tShould get field %s %q, got %q.", failed, testID, k, v, er.Fields[k])
					}
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected error response.", success, testID)
			}
		}
	}
}
