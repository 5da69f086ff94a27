package service

import (
	"context"

	"github.com/devring/devring-backend/internal/domain"
	pkglogger "github.com/devring/devring-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var searchFallbackTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_fallback_total",
		Help: "Number of times an entity search degraded to its fallback mode",
	},
	[]string{"entity"},
)

type searchFunc[T any] func(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[T], error)

// withFallback decorates a primary executor with a degraded one. Any
// primary error is logged, metered and answered by exactly one fallback
// call with identical params; a fallback error is terminal and propagates
// as-is. The primary is never retried.
func withFallback[T any](primary, fallback searchFunc[T], entity string) searchFunc[T] {
	return func(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[T], error) {
		bucket, err := primary(ctx, q)
		if err == nil {
			return bucket, nil
		}

		pkglogger.GetLogger().Warn().
			Err(err).
			Str("entity", entity).
			Str("query", q.Text).
			Int("page", q.Page).
			Int("limit", q.Limit).
			Str("sort", string(q.Sort)).
			Msg("primary search failed, using fallback")
		searchFallbackTotal.WithLabelValues(entity).Inc()

		return fallback(ctx, q)
	}
}
