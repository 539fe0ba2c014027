package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"raggate.org/internal/auth"
)

// keygen mints a dual-part API key. The plaintext secret is printed once
// and never stored; only its digest reaches the database.
func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("RAGGATE_PG_DSN"), "PostgreSQL DSN (omit to print without inserting)")
		label   = flag.String("label", "", "Human-readable key label")
		role    = flag.String("role", "", "Role granted by the key (defaults to the owner's role)")
		scopes  = flag.String("scopes", "", "Comma-separated scopes (defaults to the role's scope set)")
		orgID   = flag.String("org", "", "Organization id attached to the key")
		ownerID = flag.String("owner", "", "Owner user id (required when inserting)")
		ttl     = flag.Duration("ttl", 0, "Key lifetime; 0 means no expiry")
	)
	flag.Parse()

	keyID := uuid.NewString()
	secret := randomSecret()
	hash := auth.HashSecret(secret)

	fmt.Printf("api key:     %s:%s\n", keyID, secret)
	fmt.Printf("key id:      %s\n", keyID)
	fmt.Printf("secret hash: %s\n", hash)

	if *dsn == "" {
		return
	}
	if *ownerID == "" {
		log.Fatal("-owner is required when inserting")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var expiresAt *time.Time
	if *ttl > 0 {
		t := time.Now().UTC().Add(*ttl)
		expiresAt = &t
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowID int64
	err = tx.QueryRowContext(ctx, `
		insert into api_keys (label, key_id, secret_hash, scopes, role, status, organization_id, expires_at)
		values ($1, $2, $3, nullif($4,''), nullif($5,''), 'active', nullif($6,''), $7)
		returning id
	`, strings.TrimSpace(*label), keyID, hash, strings.TrimSpace(*scopes),
		strings.TrimSpace(*role), strings.TrimSpace(*orgID), expiresAt).Scan(&rowID)
	if err != nil {
		log.Fatalf("insert api key: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into api_keys_owner_links (api_key_id, user_id)
		values ($1, $2::bigint)
	`, rowID, *ownerID); err != nil {
		log.Fatalf("link owner: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Printf("inserted key %s for owner %s\n", keyID, *ownerID)
}

func randomSecret() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		log.Fatalf("entropy: %v", err)
	}
	return hex.EncodeToString(b[:])
}
