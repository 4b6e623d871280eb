// Package handler provides HTTP handlers for the ThoughtWeave service.
package handler

import (
	"github.com/kart-io/thoughtweave/internal/capture"
	"github.com/kart-io/thoughtweave/internal/conversation"
	"github.com/kart-io/thoughtweave/internal/export"
	"github.com/kart-io/thoughtweave/internal/graph"
	"github.com/kart-io/thoughtweave/internal/retrieval"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/synthesis"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/kart-io/thoughtweave/pkg/security/auth"
)

// Handler handles all ThoughtWeave HTTP requests. Each endpoint reads the
// validated user identifier from the auth context an upstream authorizer
// populated; no key validation happens here.
type Handler struct {
	capture       *capture.Service
	meta          store.Factory
	conversations *conversation.Service
	retrieval     *retrieval.Engine
	synth         *synthesis.Synthesizer
	graph         *graph.Builder
	export        *export.Service

	cacheStats func(c transport.Context) // optional operational endpoint
}

// New creates a Handler over the fully wired core services.
func New(
	captureSvc *capture.Service,
	meta store.Factory,
	conversations *conversation.Service,
	retrievalEngine *retrieval.Engine,
	synth *synthesis.Synthesizer,
	graphBuilder *graph.Builder,
	exportSvc *export.Service,
) *Handler {
	return &Handler{
		capture:       captureSvc,
		meta:          meta,
		conversations: conversations,
		retrieval:     retrievalEngine,
		synth:         synth,
		graph:         graphBuilder,
		export:        exportSvc,
	}
}

// SetCacheStatsHandler installs the optional /internal/cache-stats handler.
func (h *Handler) SetCacheStatsHandler(fn func(c transport.Context)) {
	h.cacheStats = fn
}

// user extracts the authenticated user identifier from the request
// context. An empty return means the auth middleware did not run or the
// upstream authorizer failed to populate the context; the caller responds
// 401 in that case.
func user(c transport.Context) (string, error) {
	subject := auth.SubjectFromContext(c.Request())
	if subject == "" {
		return "", twerrors.ErrNoAuthContext
	}
	return subject, nil
}
