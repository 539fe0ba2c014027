package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the verified-but-unauthoritative claims extracted from a
// bearer token. Identity attributes here are merged with, and overridden
// by, the identity store record during resolution.
type TokenClaims struct {
	UserID         string
	Role           string
	Scopes         ScopeSet
	OrganizationID string
	Email          string
	Username       string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// TokenValidator verifies bearer tokens signed with a shared HS256 secret.
// Verification is pure: it never consults the identity store.
type TokenValidator struct {
	parser *jwt.Parser
	secret []byte
}

// TokenOption configures TokenValidator construction.
type TokenOption func(*tokenOptions)

type tokenOptions struct {
	leeway time.Duration
	now    func() time.Time
}

// WithLeeway allows a clock-skew margin when checking expiry.
func WithLeeway(d time.Duration) TokenOption {
	return func(o *tokenOptions) {
		if d > 0 {
			o.leeway = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(o *tokenOptions) {
		if fn != nil {
			o.now = fn
		}
	}
}

// NewTokenValidator constructs a validator for the given shared secret.
func NewTokenValidator(secret string, opts ...TokenOption) (*TokenValidator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	options := tokenOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return options.now() }),
	}
	if options.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(options.leeway))
	}
	return &TokenValidator{
		parser: jwt.NewParser(parserOpts...),
		secret: []byte(secret),
	}, nil
}

// Validate verifies the token signature and expiry and extracts claims.
// Every failure collapses to ErrInvalidCredential; the structural cause is
// retained only as a diagnostic reason.
func (v *TokenValidator) Validate(token string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidCredential(ReasonInvalidFormat, errors.New("empty token"))
	}

	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, invalidCredential(tokenFailureReason(err), err)
	}
	if !parsed.Valid {
		return nil, invalidCredential(ReasonSignature, errors.New("token not valid"))
	}

	// Subject comes from "id" with "sub" as fallback, matching the tokens
	// issued by the identity provider.
	userID := claimString(claims, "id")
	if userID == "" {
		userID = claimString(claims, "sub")
	}
	if userID == "" {
		return nil, invalidCredential(ReasonInvalidFormat, errors.New("token missing subject"))
	}

	role := claimString(claims, "role")
	if role == "" {
		role = "authenticated"
	}

	scopeClaim := claims["scopes"]
	if scopeClaim == nil {
		scopeClaim = claims["scope"]
	}

	orgID := claimString(claims, "organization_id")
	if orgID == "" {
		orgID = claimString(claims, "orgId")
	}

	out := &TokenClaims{
		UserID:         userID,
		Role:           role,
		Scopes:         NormalizeScopeClaim(scopeClaim),
		OrganizationID: orgID,
		Email:          claimString(claims, "email"),
		Username:       claimString(claims, "username"),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func tokenFailureReason(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonInvalidFormat
	default:
		return ReasonInvalidFormat
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
