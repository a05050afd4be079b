package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

// HashKey is the one-way transform applied to a raw credential before
// it is compared against key_hash. Credentials are never stored or
// logged in plaintext.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LookupAPIKey resolves a raw credential to its principal row. A
// revoked key is treated identically to an unknown one.
func (s *Store) LookupAPIKey(ctx context.Context, raw string) (*APIKey, error) {
	hash := HashKey(raw)
	var k APIKey
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, key_hash, rate_rps, burst, monthly_quota, created_at, revoked_at
		FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`, hash).Scan(
		&k.ID, &k.Name, &k.KeyHash, &k.RateRPS, &k.Burst, &k.MonthlyQuota, &k.CreatedAt, &k.RevokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.New(apierr.KindAuth, "invalid or revoked credential")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	return &k, nil
}
