package middleware

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	mwopts "github.com/kart-io/thoughtweave/pkg/options/middleware"
)

// RegisterPprofRoutes registers the pprof endpoints on the
// framework-agnostic router, applying the configured profiling rates.
func RegisterPprofRoutes(router transport.Router, opts *mwopts.PprofOptions) {
	if opts == nil {
		opts = mwopts.NewPprofOptions()
	}

	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/debug/pprof"
	}
	prefix = strings.TrimSuffix(prefix, "/")

	wrap := func(h http.HandlerFunc) transport.HandlerFunc {
		return func(c transport.Context) {
			h(c.ResponseWriter(), c.HTTPRequest())
		}
	}

	router.Handle(http.MethodGet, prefix+"/", wrap(pprof.Index))
	router.Handle(http.MethodGet, prefix, wrap(pprof.Index))

	if opts.EnableCmdline {
		router.Handle(http.MethodGet, prefix+"/cmdline", wrap(pprof.Cmdline))
	}
	if opts.EnableProfile {
		router.Handle(http.MethodGet, prefix+"/profile", wrap(pprof.Profile))
	}
	if opts.EnableSymbol {
		router.Handle(http.MethodGet, prefix+"/symbol", wrap(pprof.Symbol))
		router.Handle(http.MethodPost, prefix+"/symbol", wrap(pprof.Symbol))
	}
	if opts.EnableTrace {
		router.Handle(http.MethodGet, prefix+"/trace", wrap(pprof.Trace))
	}
}
