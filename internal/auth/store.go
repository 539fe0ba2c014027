package auth

import (
	"context"
	"time"
)

// IdentityRecord is the authoritative user record resolved from the
// identity store. Its values override token- or key-derived claims when
// both are present.
type IdentityRecord struct {
	ID             string
	Username       string
	Email          string
	Confirmed      bool
	Blocked        bool
	Roles          []string
	OrganizationID string
}

// APIKeyRecord is a stored dual-part API key. SecretHash is a one-way
// SHA-256 digest; the plaintext secret is never persisted or logged.
// RawScopes preserves the stored column value (JSON array or comma list)
// and is normalized during validation.
type APIKeyRecord struct {
	KeyID          string
	SecretHash     string
	RawScopes      string
	Role           string
	Status         string
	OrganizationID string
	OwnerID        string
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
}

// IdentityStore is the backing relational store of users, roles and API
// keys. Lookups return ErrNotFound for absent records; any other error
// means the store itself failed.
type IdentityStore interface {
	// GetUserByID resolves a user with joined role names and, when
	// present, an organization id.
	GetUserByID(ctx context.Context, id string) (*IdentityRecord, error)

	// GetAPIKeyByKeyID resolves an API key; only active rows are
	// eligible. The owner id is joined when linked.
	GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKeyRecord, error)

	// UpdateAPIKeyLastUsed stamps the key's last use. Best effort.
	UpdateAPIKeyLastUsed(ctx context.Context, keyID string) error

	// HealthCheck probes store connectivity.
	HealthCheck(ctx context.Context) error
}
