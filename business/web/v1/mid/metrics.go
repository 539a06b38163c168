package mid

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/naivechain/foundation/web"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is the subsystem label for the request metrics.
const MetricsSubsystem = "http"

// RequestMetrics contains the metrics recorded for every request.
type RequestMetrics struct {
	// Number of requests handled, labeled by method and status code.
	Requests metrics.Counter
	// Number of requests that returned an error.
	Errors metrics.Counter
	// Time spent handling requests in seconds.
	Duration metrics.Histogram
}

// PrometheusRequestMetrics returns RequestMetrics build using Prometheus
// client library.
func PrometheusRequestMetrics(namespace string) *RequestMetrics {
	return &RequestMetrics{
		Requests: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "requests",
			Help:      "Number of requests handled.",
		}, []string{"method", "status"}),
		Errors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "errors",
			Help:      "Number of requests that returned an error.",
		}, []string{}),
		Duration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling requests.",
			Buckets:   stdprometheus.DefBuckets,
		}, []string{}),
	}
}

// NopRequestMetrics returns no-op RequestMetrics.
func NopRequestMetrics() *RequestMetrics {
	return &RequestMetrics{
		Requests: discard.NewCounter(),
		Errors:   discard.NewCounter(),
		Duration: discard.NewHistogram(),
	}
}

// Metrics updates program counters.
func Metrics(m *RequestMetrics) web.Middleware {
	if m == nil {
		m = NopRequestMetrics()
	}

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			if err != nil {
				m.Errors.Add(1)
			}

			if v, verr := web.GetValues(ctx); verr == nil {
				m.Requests.With("method", r.Method, "status", strconv.Itoa(v.StatusCode)).Add(1)
				m.Duration.Observe(time.Since(v.Now).Seconds())
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}
