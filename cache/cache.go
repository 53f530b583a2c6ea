// Package cache memoizes visual metadata by source content digest, so
// repeated uploads of identical bytes skip re-extraction. Purely an
// enhancement: a miss or a broken cache never affects pipeline output.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/leeforge/imageflow/meta"
)

// MetadataCache stores extracted visual metadata keyed by source digest.
type MetadataCache interface {
	// Get returns the cached record and whether it was present. Errors are
	// swallowed by implementations; callers only see hit/miss.
	Get(ctx context.Context, digest string) (meta.Visual, bool)

	// Set stores the record. Best effort.
	Set(ctx context.Context, digest string, visual meta.Visual)
}

// Digest returns the SHA-256 hex digest of the source bytes, the cache key
// for metadata records.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
