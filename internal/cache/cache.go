// Package cache memoizes query embeddings. The same query is embedded for
// document candidate selection and for chunk retrieval, and retried turns
// embed it again, so repeated lookups are common.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store keeps embeddings by key
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error
}

// Key derives the cache key of text embedded with model
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "nizami:emb:" + model + ":" + hex.EncodeToString(sum[:])
}
