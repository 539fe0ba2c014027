package auth

import (
	"context"
	"net/http"
)

// Requirement is the authorization contract attached to an operation.
// Empty fields impose no constraint.
type Requirement struct {
	Scopes ScopeSet
	Roles  []string
}

// Rejection is the structured outcome of a failed guard check: 401 when
// no usable identity was established, 403 when an identity lacks
// privilege. Messages stay generic so the response reveals nothing about
// the failure's cause.
type Rejection struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return r.Message
}

// Payload renders the rejection in the wire shape
// {"error":{"code":...,"message":...}}.
func (r *Rejection) Payload() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    r.Code,
			"message": r.Message,
		},
	}
}

var (
	rejectAuthRequired = &Rejection{Code: http.StatusUnauthorized, Message: "authentication required"}
	rejectAuthFailed   = &Rejection{Code: http.StatusUnauthorized, Message: "authentication failed"}
	rejectScope        = &Rejection{Code: http.StatusForbidden, Message: "insufficient permissions"}
	rejectRole         = &Rejection{Code: http.StatusForbidden, Message: "insufficient role"}
)

// Guard enforces authorization contracts at the request boundary.
type Guard struct {
	resolver *Resolver
}

// NewGuard wraps a resolver for boundary enforcement.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Require resolves a principal from the headers and checks it against the
// requirement. On success it returns a context with the principal bound
// for the operation's duration; on failure it returns a Rejection and the
// caller must not proceed.
func (g *Guard) Require(ctx context.Context, headers Headers, req Requirement) (context.Context, *Principal, *Rejection) {
	principal, err := g.resolver.Authenticate(ctx, headers)
	if err != nil || principal == nil {
		return ctx, nil, rejectAuthRequired
	}
	if !g.resolver.IsActive(principal) {
		return ctx, nil, rejectAuthFailed
	}
	if len(req.Scopes) > 0 && !g.resolver.HasScopes(principal, req.Scopes) {
		return ctx, nil, rejectScope
	}
	if len(req.Roles) > 0 && !g.resolver.HasRole(principal, req.Roles...) {
		return ctx, nil, rejectRole
	}
	return ContextWithPrincipal(ctx, principal), principal, nil
}

// Optional resolves and binds a principal when one can be established but
// never rejects: anonymous and failed attempts both proceed unbound.
func (g *Guard) Optional(ctx context.Context, headers Headers) (context.Context, *Principal) {
	principal, err := g.resolver.Authenticate(ctx, headers)
	if err != nil || principal == nil {
		return ctx, nil
	}
	if !g.resolver.IsActive(principal) {
		return ctx, nil
	}
	return ContextWithPrincipal(ctx, principal), principal
}
