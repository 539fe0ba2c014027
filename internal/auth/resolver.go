package auth

import (
	"context"
	"errors"
	"net/http"
	"net/textproto"
	"strings"

	"raggate.org/internal/obs"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	apiKeyPrefix        = "ApiKey "

	defaultAPIKeyHeader = "X-API-Key"
	defaultTopRole      = "super_admin"
)

// Headers is a case-insensitive view of the inbound request attributes the
// resolver consumes. Callers adapt whatever carrier their framework uses.
type Headers map[string]string

// NewHeaders canonicalizes the given header map.
func NewHeaders(raw map[string]string) Headers {
	h := make(Headers, len(raw))
	for k, v := range raw {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return h
}

// HeadersFromHTTP adapts an http.Header, keeping the first value per key.
func HeadersFromHTTP(header http.Header) Headers {
	h := make(Headers, len(header))
	for k, values := range header {
		if len(values) > 0 {
			h[textproto.CanonicalMIMEHeaderKey(k)] = values[0]
		}
	}
	return h
}

// Get looks up a header value case-insensitively.
func (h Headers) Get(name string) string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Resolver authenticates a request's headers into a Principal, applying a
// fixed token-then-key precedence, and answers authorization predicates
// over resolved principals.
type Resolver struct {
	tokens       *TokenValidator
	keys         *KeyValidator
	store        IdentityStore
	apiKeyHeader string
	topRole      string
}

// ResolverOption configures Resolver construction.
type ResolverOption func(*Resolver)

// WithAPIKeyHeader overrides the header inspected for API keys.
func WithAPIKeyHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if strings.TrimSpace(name) != "" {
			r.apiKeyHeader = name
		}
	}
}

// WithTopRole overrides the role that bypasses organization scoping.
func WithTopRole(role string) ResolverOption {
	return func(r *Resolver) {
		if strings.TrimSpace(role) != "" {
			r.topRole = role
		}
	}
}

// NewResolver wires the two validators and the identity store together.
func NewResolver(tokens *TokenValidator, keys *KeyValidator, store IdentityStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tokens:       tokens,
		keys:         keys,
		store:        store,
		apiKeyHeader: defaultAPIKeyHeader,
		topRole:      defaultTopRole,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Authenticate resolves headers to a principal. The order is fixed: a
// bearer token is tried first, then the API key headers. A nil principal
// with a nil error means no credentials were presented (anonymous); a nil
// principal with ErrInvalidCredential means authentication was attempted
// and failed.
func (r *Resolver) Authenticate(ctx context.Context, headers Headers) (*Principal, error) {
	attempted := false

	if token, ok := r.bearerToken(headers); ok {
		attempted = true
		principal, err := r.authenticateToken(ctx, token)
		if err == nil {
			obs.RecordAuthAttempt(string(MethodToken), "success")
			return principal, nil
		}
		r.logFailure(MethodToken, err)
	}

	if key, ok := r.apiKey(headers); ok {
		attempted = true
		principal, err := r.keys.Validate(ctx, key)
		if err == nil {
			obs.RecordAuthAttempt(string(MethodKey), "success")
			return principal, nil
		}
		r.logFailure(MethodKey, err)
	}

	if attempted {
		return nil, ErrInvalidCredential
	}
	obs.RecordAuthAttempt("none", "anonymous")
	return nil, nil
}

func (r *Resolver) bearerToken(headers Headers) (string, bool) {
	value := strings.TrimSpace(headers.Get(authorizationHeader))
	if len(value) <= len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearerPrefix):])
	return token, token != ""
}

func (r *Resolver) apiKey(headers Headers) (string, bool) {
	if key := strings.TrimSpace(headers.Get(r.apiKeyHeader)); key != "" {
		return key, true
	}
	value := strings.TrimSpace(headers.Get(authorizationHeader))
	if len(value) > len(apiKeyPrefix) && strings.EqualFold(value[:len(apiKeyPrefix)], apiKeyPrefix) {
		key := strings.TrimSpace(value[len(apiKeyPrefix):])
		return key, key != ""
	}
	return "", false
}

// authenticateToken merges verified claims with the authoritative store
// record. The store's email/username/confirmed/blocked win over claim
// values; a claim subject without a store record rejects the attempt.
func (r *Resolver) authenticateToken(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	record, err := r.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidCredential(ReasonIdentityMissing, err)
		}
		return nil, invalidCredential(ReasonStoreUnavailable, err)
	}

	principal := &Principal{
		UserID:         claims.UserID,
		Role:           claims.Role,
		Scopes:         claims.Scopes,
		OrganizationID: claims.OrganizationID,
		Email:          claims.Email,
		Username:       claims.Username,
		Confirmed:      record.Confirmed,
		Blocked:        record.Blocked,
		Method:         MethodToken,
	}
	if record.Email != "" {
		principal.Email = record.Email
	}
	if record.Username != "" {
		principal.Username = record.Username
	}
	if principal.OrganizationID == "" {
		principal.OrganizationID = record.OrganizationID
	}
	return principal, nil
}

func (r *Resolver) logFailure(method Method, err error) {
	obs.RecordAuthAttempt(string(method), "failure")
	obs.LogEvent("warn", "auth_failed", map[string]any{
		"method": string(method),
		"reason": string(ReasonOf(err)),
	})
}

// HasScopes reports whether the principal holds every required scope.
func (r *Resolver) HasScopes(p *Principal, required ScopeSet) bool {
	if p == nil {
		return false
	}
	return p.Scopes.ContainsAll(required)
}

// HasRole reports whether the principal's role is one of the allowed set.
func (r *Resolver) HasRole(p *Principal, allowed ...string) bool {
	if p == nil {
		return false
	}
	for _, role := range allowed {
		if p.Role == role {
			return true
		}
	}
	return false
}

// InOrganization reports whether the principal belongs to the given
// organization. The top role bypasses organization scoping entirely.
func (r *Resolver) InOrganization(p *Principal, orgID string) bool {
	if p == nil {
		return false
	}
	if p.Role == r.topRole {
		return true
	}
	return p.OrganizationID == orgID
}

// IsActive reports whether the principal may act at all: blocked accounts
// never pass, and token-authenticated accounts must be confirmed.
func (r *Resolver) IsActive(p *Principal) bool {
	if p == nil {
		return false
	}
	if p.Blocked {
		return false
	}
	if p.Method == MethodToken && !p.Confirmed {
		return false
	}
	return true
}
