package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"raggate.org/internal/obs"
)

// PoolConfig tunes the database/sql connection pool. Zero values fall
// back to conservative defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PGStore is the PostgreSQL identity store over the Strapi-shaped schema
// (up_users, up_roles, api_keys and their link tables).
type PGStore struct {
	db *sql.DB
}

var _ IdentityStore = (*PGStore)(nil)

// OpenPGStore opens a pooled connection to the identity database.
func OpenPGStore(dsn string, pool PoolConfig) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 10
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 2
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 15 * time.Minute
	}
	if pool.ConnMaxIdleTime <= 0 {
		pool.ConnMaxIdleTime = 5 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing handle (used by tests).
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) GetUserByID(ctx context.Context, id string) (*IdentityRecord, error) {
	defer observe("get_user")()

	var rec IdentityRecord
	var username, email sql.NullString
	// Strapi stores numeric ids; the text cast keeps the lookup uniform.
	err := s.db.QueryRowContext(ctx, `
		select u.id::text, u.username, u.email, coalesce(u.confirmed,false), coalesce(u.blocked,false)
		from up_users u
		where u.id::text = $1
	`, id).Scan(&rec.ID, &username, &email, &rec.Confirmed, &rec.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Username = username.String
	rec.Email = email.String

	rows, err := s.db.QueryContext(ctx, `
		select r.name
		from up_users_role_links url
		join up_roles r on r.id = url.role_id
		where url.user_id::text = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		rec.Roles = append(rec.Roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Organization membership is optional; deployments without the table
	// simply leave the field empty.
	var orgID sql.NullString
	err = s.db.QueryRowContext(ctx, `
		select o.id::text
		from organizations o
		where o.owner_id::text = $1
		limit 1
	`, id).Scan(&orgID)
	if err == nil && orgID.Valid {
		rec.OrganizationID = orgID.String
	}

	return &rec, nil
}

func (s *PGStore) GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKeyRecord, error) {
	defer observe("get_api_key")()

	var rec APIKeyRecord
	var rowID int64
	var scopes, role, orgID sql.NullString
	var expiresAt, lastUsedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select ak.id, ak.key_id, ak.secret_hash, ak.scopes, ak.role, ak.organization_id,
		       ak.status, ak.expires_at, ak.last_used_at
		from api_keys ak
		where ak.key_id = $1 and ak.status = 'active'
	`, keyID).Scan(&rowID, &rec.KeyID, &rec.SecretHash, &scopes, &role, &orgID,
		&rec.Status, &expiresAt, &lastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.RawScopes = scopes.String
	rec.Role = role.String
	rec.OrganizationID = orgID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		rec.LastUsedAt = &t
	}

	var ownerID sql.NullString
	err = s.db.QueryRowContext(ctx, `
		select aol.user_id::text
		from api_keys_owner_links aol
		where aol.api_key_id = $1
		limit 1
	`, rowID).Scan(&ownerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	rec.OwnerID = ownerID.String

	return &rec, nil
}

func (s *PGStore) UpdateAPIKeyLastUsed(ctx context.Context, keyID string) error {
	defer observe("update_api_key_last_used")()

	_, err := s.db.ExecContext(ctx, `update api_keys set last_used_at = now() where key_id = $1`, keyID)
	return err
}

func (s *PGStore) HealthCheck(ctx context.Context) error {
	defer observe("health_check")()

	var one int
	return s.db.QueryRowContext(ctx, `select 1`).Scan(&one)
}

func observe(operation string) func() {
	start := time.Now()
	return func() { obs.ObserveStoreQuery(operation, time.Since(start)) }
}
