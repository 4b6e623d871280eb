// Package middleware adapts the auth context propagation pattern (extract
// from header, attach to the request context, 401 on absence) to a static
// per-user API key presented in the x-api-key header, where the service
// itself never validates the key — an upstream authorizer already did,
// and is trusted to have set a correct value. Built against the
// framework-agnostic transport.MiddlewareFunc contract rather than gin
// directly, so it composes with any registered FrameworkBridge.
package middleware

import (
	"net/http"

	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/kart-io/thoughtweave/pkg/security/auth"
)

// APIKeyHeader is the header an upstream authorizer is expected to
// populate with the already-validated user identifier.
const APIKeyHeader = "x-api-key"

// AuthContext reads APIKeyHeader as the caller's user id and attaches it
// to the request context as auth.Claims. A missing header aborts the
// request with 401; no signature or expiry check is performed here.
func AuthContext() transport.MiddlewareFunc {
	return func(next transport.HandlerFunc) transport.HandlerFunc {
		return func(c transport.Context) {
			user := auth.SubjectFromHeaderValue(c.Header(APIKeyHeader))
			if user == "" {
				c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing x-api-key header"})
				return
			}

			ctx := auth.ContextWithClaims(c.Request(), &auth.Claims{Subject: user})
			ctx = auth.ContextWithSubject(ctx, user)
			c.SetRequest(ctx)
			next(c)
		}
	}
}
