// Package reqctx provides centralized request context management.
//
// It is the single source of truth for request-scoped data: authentication
// claims and request metadata. All context keys are private unexported types;
// access goes through type-safe getters and setters.
//
// Setting values (typically in middleware):
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{
//	    RequestID:   "abc-123",
//	    ClientIP:    "192.168.1.1",
//	    UserAgent:   "Mozilla/5.0",
//	    RequestedAt: time.Now(),
//	})
//
//	ctx = reqctx.WithClaims(ctx, claims)
//
// Getting values (in handlers, services, etc.):
//
//	meta, ok := reqctx.RequestMetaFromContext(ctx)
//	claims := reqctx.ClaimsFromContext(ctx)
//	if reqctx.IsAuthenticated(ctx) {
//	    userID, _ := reqctx.UserIDFromContext(ctx)
//	}
//
// Contracts:
//
//   - RequestMeta is always set by HTTP middleware for all requests
//   - Claims is set only for authenticated requests (token present and valid)
package reqctx
