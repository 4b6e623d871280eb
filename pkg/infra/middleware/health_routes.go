package middleware

import (
	"net/http"

	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	mwopts "github.com/kart-io/thoughtweave/pkg/options/middleware"
)

// RegisterHealthRoutes registers the health, liveness, and readiness
// endpoints on the framework-agnostic router. The options' Checker, when
// set, is added to the global health manager.
func RegisterHealthRoutes(router transport.Router, opts *mwopts.HealthOptions) {
	if opts == nil {
		opts = mwopts.NewHealthOptions()
	}
	manager := GetHealthManager()

	if opts.Checker != nil {
		manager.RegisterChecker("custom", opts.Checker)
	}

	if opts.Path != "" {
		router.Handle(http.MethodGet, opts.Path, func(c transport.Context) {
			resp := manager.Check()
			status := http.StatusOK
			if resp.Status == HealthStatusDown {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, resp)
		})
	}

	// Liveness probe - always returns OK if the process is running
	if opts.LivenessPath != "" {
		router.Handle(http.MethodGet, opts.LivenessPath, func(c transport.Context) {
			c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusUp})
		})
	}

	// Readiness probe - returns OK only if service is ready
	if opts.ReadinessPath != "" {
		router.Handle(http.MethodGet, opts.ReadinessPath, func(c transport.Context) {
			if !manager.IsReady() {
				c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: HealthStatusDown})
				return
			}
			resp := manager.Check()
			status := http.StatusOK
			if resp.Status == HealthStatusDown {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, resp)
		})
	}
}
