package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/metrics"
)

// SentenceEmbedCache caches sentence embeddings for the duration of a
// single ingestion run, adapted from an embcache.CachedEmbedder
// decorator but backed by an in-process map: per §5 the cache is
// single-writer, single-reader. It lives as long as the Chunker that
// owns it, so repeated Chunk calls on one Chunker share it.
type SentenceEmbedCache struct {
	inner  domain.Embedder
	seen   map[string][]float32
	logger *zap.Logger
}

// NewSentenceEmbedCache wraps inner with an ingestion-scoped cache.
func NewSentenceEmbedCache(inner domain.Embedder, logger *zap.Logger) *SentenceEmbedCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentenceEmbedCache{
		inner:  inner,
		seen:   make(map[string][]float32),
		logger: logger,
	}
}

// Embed returns a cached vector for identical sentence text, or delegates
// to the inner embedder and remembers the result.
func (c *SentenceEmbedCache) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	if vec, ok := c.seen[key]; ok {
		metrics.SentenceEmbedCacheTotal.WithLabelValues("hit").Inc()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	metrics.SentenceEmbedCacheTotal.WithLabelValues("miss").Inc()

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	c.seen[key] = result.Embedding
	return result, nil
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
