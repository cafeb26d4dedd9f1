package report

import (
	"context"
	"testing"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
)

type fakeSource struct {
	summaryCalls int
	summary      domain.SalesSummary
	lowStock     []domain.LowStockItem
}

func (f *fakeSource) GetSalesSummary(_ context.Context, _ time.Time) (domain.SalesSummary, error) {
	f.summaryCalls++
	return f.summary, nil
}

func (f *fakeSource) ListLowStock(_ context.Context, _ int) ([]domain.LowStockItem, error) {
	return f.lowStock, nil
}

type mapCache struct {
	entries map[string]*domain.DashboardSummary
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]*domain.DashboardSummary{}}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.DashboardSummary, bool, error) {
	summary, ok := c.entries[key]
	return summary, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, summary *domain.DashboardSummary, _ time.Duration) error {
	c.entries[key] = summary
	return nil
}

func (c *mapCache) Close() error { return nil }

func TestSummaryComputesDerivedFields(t *testing.T) {
	source := &fakeSource{
		summary: domain.SalesSummary{
			Date:            "2026-08-31",
			TotalSalesCents: 90000,
			BillCount:       3,
			NetProfitCents:  20000,
			Hourly: []domain.HourlyPoint{
				{Hour: 9, Bills: 1, AmountCents: 10000},
				{Hour: 17, Bills: 2, AmountCents: 80000},
			},
		},
		lowStock: []domain.LowStockItem{{ProductID: "p1", CurrentQty: 2, ReorderLevel: 5}},
	}
	engine := NewEngine(nil, time.Second)

	summary, err := engine.Summary(context.Background(), time.Now().UTC(), source)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.AvgBillCents != 30000 {
		t.Fatalf("avg bill = %d, want 30000", summary.AvgBillCents)
	}
	if summary.BusiestHour != 17 {
		t.Fatalf("busiest hour = %d, want 17", summary.BusiestHour)
	}
	if summary.FromCache {
		t.Fatalf("first build must not come from cache")
	}
	if len(summary.LowStock) != 1 {
		t.Fatalf("low stock = %+v", summary.LowStock)
	}
}

func TestSummaryServesRepeatsFromCache(t *testing.T) {
	source := &fakeSource{summary: domain.SalesSummary{Date: "2026-08-31", BillCount: 1, TotalSalesCents: 5000}}
	engine := NewEngine(newMapCache(), time.Minute)
	day := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	if _, err := engine.Summary(context.Background(), day, source); err != nil {
		t.Fatalf("first summary: %v", err)
	}
	second, err := engine.Summary(context.Background(), day, source)
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}

	if source.summaryCalls != 1 {
		t.Fatalf("store hit %d times, want 1", source.summaryCalls)
	}
	if !second.FromCache {
		t.Fatalf("repeat must be served from cache")
	}
}

func TestSummaryEmptyDayHasNoBusiestHour(t *testing.T) {
	source := &fakeSource{summary: domain.SalesSummary{Date: "2026-08-31"}}
	engine := NewEngine(nil, time.Second)

	summary, err := engine.Summary(context.Background(), time.Now().UTC(), source)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.BusiestHour != -1 {
		t.Fatalf("busiest hour = %d, want -1 for an empty day", summary.BusiestHour)
	}
	if summary.AvgBillCents != 0 {
		t.Fatalf("avg bill = %d, want 0", summary.AvgBillCents)
	}
}
