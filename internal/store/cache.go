package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/flyingrobots/creator-scout/internal/compresscache"
)

// CacheKeyFor derives the deterministic cache key for a normalized
// profile URL: lowercased, scheme-stripped, trailing slash trimmed.
func CacheKeyFor(profileURL string) string {
	normalized := normalizeProfileURL(profileURL)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeProfileURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}

// CacheLookup bulk-looks-up the profile cache for a set of profile
// URLs, returning only non-expired hits keyed by the original URL.
func (s *Store) CacheLookup(ctx context.Context, profileURLs []string) (map[string]ProfileCacheEntry, error) {
	if len(profileURLs) == 0 {
		return map[string]ProfileCacheEntry{}, nil
	}
	keyToURL := make(map[string]string, len(profileURLs))
	keys := make([]string, 0, len(profileURLs))
	for _, u := range profileURLs {
		k := CacheKeyFor(u)
		keyToURL[k] = u
		keys = append(keys, k)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, normalized_url, platform, raw_data, cached_at, expires_at
		FROM profile_cache WHERE cache_key = ANY($1) AND expires_at > now()`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ProfileCacheEntry, len(keys))
	for rows.Next() {
		var e ProfileCacheEntry
		var compressed []byte
		if err := rows.Scan(&e.CacheKey, &e.NormalizedURL, &e.Platform, &compressed, &e.CachedAt, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		raw, err := compresscache.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("decompress cache row %s: %w", e.CacheKey, err)
		}
		e.RawData = raw
		if origURL, ok := keyToURL[e.CacheKey]; ok {
			out[origURL] = e
		}
	}
	return out, rows.Err()
}

// CachePut writes (or refreshes) a cache row with the given TTL.
// Failures are expected to be treated as best-effort by callers.
func (s *Store) CachePut(ctx context.Context, profileURL, platform string, rawData any, ttl time.Duration) error {
	raw, err := json.Marshal(rawData)
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}
	compressed, err := compresscache.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress cache payload: %w", err)
	}
	key := CacheKeyFor(profileURL)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_cache (cache_key, normalized_url, platform, raw_data, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, now(), now() + $5::interval)
		ON CONFLICT (cache_key) DO UPDATE SET
			raw_data = EXCLUDED.raw_data, cached_at = now(), expires_at = EXCLUDED.expires_at`,
		key, normalizeProfileURL(profileURL), platform, compressed, fmt.Sprintf("%d seconds", int(ttl.Seconds())))
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// DeleteExpiredCache removes expired rows in bounded batches.
func (s *Store) DeleteExpiredCache(ctx context.Context, batchSize int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM profile_cache WHERE cache_key IN (
			SELECT cache_key FROM profile_cache WHERE expires_at < now() LIMIT $1
		)`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

