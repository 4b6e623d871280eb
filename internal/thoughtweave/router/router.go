// Package router wires the ThoughtWeave HTTP surface onto the server
// manager's router.
package router

import (
	"net/http"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/thoughtweave/handler"
	"github.com/kart-io/thoughtweave/pkg/infra/server"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	authmw "github.com/kart-io/thoughtweave/pkg/security/auth/middleware"
)

// routes adapts the handler to the server registry's HTTPHandler/Service
// contract.
type routes struct {
	h *handler.Handler
}

// ServiceName identifies the service in the registry.
func (routes) ServiceName() string { return "thoughtweave" }

// RegisterRoutes registers every endpoint. The auth-context middleware is
// applied here, after the server's own health/metrics/pprof routes are
// registered, so probes stay unauthenticated while the API surface
// requires the upstream-validated user identifier.
func (r routes) RegisterRoutes(router transport.Router) {
	router.Use(authmw.AuthContext())

	router.Handle(http.MethodPost, "/thoughts", r.h.CaptureThought)
	router.Handle(http.MethodGet, "/thoughts", r.h.ListThoughts)
	router.Handle(http.MethodGet, "/thoughts/:id/related", r.h.RelatedThoughts)

	router.Handle(http.MethodPost, "/ask", r.h.Ask)

	router.Handle(http.MethodPost, "/conversations", r.h.CreateConversation)
	router.Handle(http.MethodGet, "/conversations", r.h.ListConversations)
	router.Handle(http.MethodGet, "/conversations/:id", r.h.GetConversation)
	router.Handle(http.MethodPut, "/conversations/:id", r.h.UpdateConversation)
	router.Handle(http.MethodDelete, "/conversations/:id", r.h.DeleteConversation)
	router.Handle(http.MethodPost, "/conversations/:id/messages", r.h.SendMessage)

	router.Handle(http.MethodGet, "/graph", r.h.ThemeGraph)
	router.Handle(http.MethodGet, "/export", r.h.Export)

	router.Handle(http.MethodGet, "/internal/cache-stats", r.h.CacheStats)
}

// Register registers the ThoughtWeave routes with the server manager.
func Register(mgr *server.Manager, h *handler.Handler) error {
	logger.Info("Registering ThoughtWeave routes...")

	rt := routes{h: h}
	if err := mgr.RegisterHTTP(rt, rt); err != nil {
		return err
	}

	logger.Info("HTTP routes registered")
	return nil
}
