// Package report builds the dashboard summary from the store's daily
// aggregates and serves repeats from cache.
package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/cache"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
)

// DataSource is the slice of the store the engine reads from.
type DataSource interface {
	GetSalesSummary(ctx context.Context, day time.Time) (domain.SalesSummary, error)
	ListLowStock(ctx context.Context, limit int) ([]domain.LowStockItem, error)
}

type Engine struct {
	cache        cache.SummaryCache
	ttl          time.Duration
	lowStockSize int
}

func NewEngine(summaryCache cache.SummaryCache, ttl time.Duration) *Engine {
	if summaryCache == nil {
		summaryCache = cache.NewNoop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Engine{
		cache:        summaryCache,
		ttl:          ttl,
		lowStockSize: 20,
	}
}

// Summary returns the dashboard for the given day. The result is cached for
// a short window; totals may lag live sales by at most the TTL.
func (e *Engine) Summary(ctx context.Context, day time.Time, source DataSource) (*domain.DashboardSummary, error) {
	start := time.Now()
	key := buildCacheKey(day, e.lowStockSize)

	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		out := *cached
		out.FromCache = true
		out.LatencyMS = time.Since(start).Milliseconds()
		return &out, nil
	}

	sales, err := source.GetSalesSummary(ctx, day)
	if err != nil {
		return nil, err
	}
	lowStock, err := source.ListLowStock(ctx, e.lowStockSize)
	if err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		Date:            sales.Date,
		TotalSalesCents: sales.TotalSalesCents,
		BillCount:       sales.BillCount,
		NetProfitCents:  sales.NetProfitCents,
		ByPayment:       sales.ByPayment,
		LowStock:        lowStock,
		Hourly:          sales.Hourly,
		Daily:           sales.Daily,
		BusiestHour:     busiestHour(sales.Hourly),
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if sales.BillCount > 0 {
		summary.AvgBillCents = sales.TotalSalesCents / sales.BillCount
	}

	// Cache failures are not dashboard failures.
	_ = e.cache.Set(ctx, key, summary, e.ttl)

	summary.LatencyMS = time.Since(start).Milliseconds()
	return summary, nil
}

func busiestHour(points []domain.HourlyPoint) int {
	busiest := -1
	var best int64 = -1
	for _, p := range points {
		if p.AmountCents > best {
			best = p.AmountCents
			busiest = p.Hour
		}
	}
	return busiest
}

func buildCacheKey(day time.Time, lowStockSize int) string {
	seed := fmt.Sprintf("dashboard|%s|%d", day.UTC().Format("2006-01-02"), lowStockSize)
	sum := sha1.Sum([]byte(seed))
	return "pos:dashboard:" + hex.EncodeToString(sum[:8])
}
