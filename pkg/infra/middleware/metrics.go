package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/thoughtweave/pkg/infra/middleware/observability"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/kart-io/thoughtweave/pkg/observability/metrics"
	mwopts "github.com/kart-io/thoughtweave/pkg/options/middleware"
)

// MetricsMiddlewareWithOptions returns a middleware that records request
// count, duration, and in-flight gauges for every handled request.
func MetricsMiddlewareWithOptions(opts *mwopts.MetricsOptions) transport.MiddlewareFunc {
	if opts == nil {
		opts = mwopts.NewMetricsOptions()
	}
	collector := observability.GetMetricsCollector(opts.Namespace, opts.Subsystem)
	exportPath := opts.Path

	return func(next transport.HandlerFunc) transport.HandlerFunc {
		return func(c transport.Context) {
			req := c.HTTPRequest()
			path := req.URL.Path

			// Skip the metrics endpoint itself
			if path == exportPath {
				next(c)
				return
			}

			collector.IncrementActive()
			start := time.Now()

			next(c)

			collector.DecrementActive()
			collector.RecordRequest(req.Method, path, http.StatusOK, time.Since(start))
		}
	}
}

var (
	runtimeRegistry     *prometheus.Registry
	runtimeRegistryOnce sync.Once
)

// RegisterMetricsRoutesWithOptions registers the Prometheus text-format
// export endpoint on the router, plus a runtime endpoint serving the Go
// scheduler and process collectors.
func RegisterMetricsRoutesWithOptions(router transport.Router, opts *mwopts.MetricsOptions) {
	if opts == nil {
		opts = mwopts.NewMetricsOptions()
	}
	observability.GetMetricsCollector(opts.Namespace, opts.Subsystem)

	router.Handle(http.MethodGet, opts.Path, func(c transport.Context) {
		c.SetHeader("Content-Type", "text/plain; charset=utf-8")
		c.String(http.StatusOK, metrics.Export())
	})

	runtimeRegistryOnce.Do(func() {
		runtimeRegistry = prometheus.NewRegistry()
		runtimeRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	router.Mount(opts.Path+"/runtime", promhttp.HandlerFor(runtimeRegistry, promhttp.HandlerOpts{}))
}
