// README: Shared TTL cache used for route/pricing memoization and rate-limit windows.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache stores opaque values with a TTL. Expired entries are never returned.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Key builds a stable key from a namespace and the JSON encoding of parts.
// Structs encode their fields in declaration order and maps sort their keys,
// so equal inputs always produce the same key.
func Key(namespace string, parts ...any) string {
	raw, err := json.Marshal(parts)
	if err != nil {
		// Unencodable input never collides with a real key and is never shared.
		return namespace + ":invalid"
	}
	sum := sha256.Sum256(raw)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
