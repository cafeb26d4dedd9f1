// Package cache stores computed dashboard summaries so repeated dashboard
// loads do not re-run the aggregate queries.
package cache

import (
	"context"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
)

// SummaryCache is a read-through cache for dashboard summaries. A miss
// returns (nil, false, nil); errors are reserved for backend failures.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardSummary, bool, error)
	Set(ctx context.Context, key string, summary *domain.DashboardSummary, ttl time.Duration) error
	Close() error
}

// NoopSummaryCache misses on every read. It keeps single-node deployments
// working without a redis instance.
type NoopSummaryCache struct{}

func NewNoop() *NoopSummaryCache {
	return &NoopSummaryCache{}
}

func (n *NoopSummaryCache) Get(ctx context.Context, key string) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (n *NoopSummaryCache) Set(ctx context.Context, key string, summary *domain.DashboardSummary, ttl time.Duration) error {
	return nil
}

func (n *NoopSummaryCache) Close() error {
	return nil
}
