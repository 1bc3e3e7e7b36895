package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/llm"
)

// Embedder wraps an llm.Embedder with a Store. Cache failures never fail an
// embedding; they only cost a call to the wrapped embedder.
type Embedder struct {
	next   llm.Embedder
	store  Store
	model  string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewEmbedder creates a caching embedder
func NewEmbedder(next llm.Embedder, store Store, model string, ttl time.Duration, logger logrus.FieldLogger) *Embedder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Embedder{next: next, store: store, model: model, ttl: ttl, logger: logger}
}

// Embed implements llm.Embedder
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.model, text)

	if vector, ok, err := e.store.Get(ctx, key); err != nil {
		e.logger.WithError(err).Warn("Embedding cache read failed")
	} else if ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return vector, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	vector, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, key, vector, e.ttl); err != nil {
		e.logger.WithError(err).Warn("Embedding cache write failed")
	}
	return vector, nil
}
