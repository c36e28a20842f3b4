package embedding

import (
	"context"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
)

// DimensionGuard rejects vectors whose length differs from the configured dimension.
// A zero dimension disables the check.
type DimensionGuard struct {
	inner     domain.Embedder
	dimension int
}

// NewDimensionGuard wraps inner with a vector length check.
func NewDimensionGuard(inner domain.Embedder, dimension int) *DimensionGuard {
	return &DimensionGuard{inner: inner, dimension: dimension}
}

// Embed implements domain.Embedder.
func (g *DimensionGuard) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := g.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if g.dimension > 0 && len(res.Embedding) != g.dimension {
		return domain.EmbeddingResult{}, domain.NewDimensionError("embedding", g.dimension, len(res.Embedding))
	}
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (g *DimensionGuard) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
