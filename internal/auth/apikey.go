package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"raggate.org/internal/obs"
	"raggate.org/internal/rbac"
)

const keyStatusActive = "active"

// DevBypass is the fixed developer credential used in local environments.
// It short-circuits validation without consulting the identity store and
// must stay disabled unless explicitly switched on.
type DevBypass struct {
	Enabled        bool
	Key            string
	UserID         string
	Role           string
	OrganizationID string
	Scopes         ScopeSet
}

// KeyValidator verifies dual-part API keys of the form "keyId:secret"
// against one-way hashes held in the identity store.
type KeyValidator struct {
	store           IdentityStore
	bypass          DevBypass
	now             func() time.Time
	lastUsedTimeout time.Duration
}

// KeyOption configures KeyValidator construction.
type KeyOption func(*KeyValidator)

// WithDevBypass installs the developer bypass credential.
func WithDevBypass(bypass DevBypass) KeyOption {
	return func(v *KeyValidator) {
		v.bypass = bypass
	}
}

// WithKeyClock overrides the time source (useful for tests).
func WithKeyClock(fn func() time.Time) KeyOption {
	return func(v *KeyValidator) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewKeyValidator constructs a validator over the given identity store.
func NewKeyValidator(store IdentityStore, opts ...KeyOption) *KeyValidator {
	v := &KeyValidator{
		store:           store,
		now:             time.Now,
		lastUsedTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks an API key and, on success, returns the principal it
// grants. Failures collapse to ErrInvalidCredential with an internal
// diagnostic reason.
func (v *KeyValidator) Validate(ctx context.Context, apiKey string) (*Principal, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, invalidCredential(ReasonInvalidFormat, errors.New("empty api key"))
	}

	if v.bypass.Enabled && apiKey == v.bypass.Key {
		obs.LogEvent("info", "dev_bypass_key_used", map[string]any{"user_id": v.bypass.UserID})
		scopes := v.bypass.Scopes
		if len(scopes) == 0 {
			scopes = NewScopeSet(rbac.DefaultScopesForRole(v.bypass.Role)...)
		}
		return &Principal{
			UserID:         v.bypass.UserID,
			Role:           v.bypass.Role,
			Scopes:         scopes,
			OrganizationID: v.bypass.OrganizationID,
			Confirmed:      true,
			Method:         MethodKey,
			DevBypass:      true,
		}, nil
	}

	parts := strings.Split(apiKey, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, invalidCredential(ReasonInvalidFormat, errors.New("api key is not keyId:secret"))
	}
	keyID, secret := parts[0], parts[1]

	record, err := v.store.GetAPIKeyByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidCredential(ReasonNotFound, err)
		}
		return nil, invalidCredential(ReasonStoreUnavailable, err)
	}
	if record.Status != keyStatusActive {
		return nil, invalidCredential(ReasonRevoked, fmt.Errorf("key status %s", record.Status))
	}
	if record.ExpiresAt != nil && record.ExpiresAt.UTC().Before(v.now().UTC()) {
		return nil, invalidCredential(ReasonExpired, fmt.Errorf("key expired at %s", record.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	if !verifySecret(secret, record.SecretHash) {
		return nil, invalidCredential(ReasonSecretMismatch, errors.New("secret digest mismatch"))
	}

	// Best-effort usage stamp: runs detached so a slow or failing update
	// never delays or fails the validation itself.
	go v.stampLastUsed(keyID)

	if record.OwnerID == "" {
		return nil, invalidCredential(ReasonIdentityMissing, errors.New("key has no owner link"))
	}
	owner, err := v.store.GetUserByID(ctx, record.OwnerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidCredential(ReasonIdentityMissing, err)
		}
		return nil, invalidCredential(ReasonStoreUnavailable, err)
	}

	ownerRole := ""
	if len(owner.Roles) > 0 {
		ownerRole = owner.Roles[0]
	}
	role := record.Role
	if role == "" {
		role = ownerRole
	}
	if role == "" {
		role = "authenticated"
	}

	scopes := parseStoredScopes(record.RawScopes)
	if len(scopes) == 0 {
		fallbackRole := record.Role
		if fallbackRole == "" {
			fallbackRole = ownerRole
		}
		if fallbackRole == "" {
			fallbackRole = "viewer"
		}
		scopes = NewScopeSet(rbac.DefaultScopesForRole(fallbackRole)...)
	}

	orgID := record.OrganizationID
	if orgID == "" {
		orgID = owner.OrganizationID
	}

	return &Principal{
		UserID:         owner.ID,
		Role:           role,
		Scopes:         scopes,
		OrganizationID: orgID,
		Email:          owner.Email,
		Username:       owner.Username,
		Confirmed:      owner.Confirmed,
		Blocked:        owner.Blocked,
		Method:         MethodKey,
		APIKeyID:       keyID,
	}, nil
}

func (v *KeyValidator) stampLastUsed(keyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), v.lastUsedTimeout)
	defer cancel()
	if err := v.store.UpdateAPIKeyLastUsed(ctx, keyID); err != nil {
		obs.LogEvent("warn", "api_key_last_used_update_failed", map[string]any{
			"key_id": keyID,
			"error":  err.Error(),
		})
	}
}

// HashSecret computes the stored digest form of an API key secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func verifySecret(secret, storedHash string) bool {
	computed := HashSecret(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
