package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
)

func seedProduct(t *testing.T, s *Store, id string, reorder int64) {
	t.Helper()
	_, err := s.CreateProduct(context.Background(), domain.Product{
		ID:                id,
		Code:              "PRD-TEST-" + id,
		Name:              "product " + id,
		SellingPriceCents: 1000,
		ReorderLevel:      reorder,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func addStock(t *testing.T, s *Store, id string, qty int64) {
	t.Helper()
	if _, _, err := s.ApplyMovement(context.Background(), domain.StockMovement{
		ProductID: id, Type: domain.MovementAdjustment, QtyDelta: qty,
	}); err != nil {
		t.Fatalf("add stock %s: %v", id, err)
	}
}

func TestListLowStockOrdersByQtyAscending(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedProduct(t, s, "a", 10)
	seedProduct(t, s, "b", 10)
	seedProduct(t, s, "c", 10)
	addStock(t, s, "a", 7)
	addStock(t, s, "b", 3)
	addStock(t, s, "c", 50)

	items, err := s.ListLowStock(ctx, 10)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("low stock count = %d, want 2", len(items))
	}
	if items[0].ProductID != "b" || items[1].ProductID != "a" {
		t.Fatalf("order = [%s %s], want [b a]", items[0].ProductID, items[1].ProductID)
	}
}

func TestListMovementsRespectsLimitNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 0)

	for i := int64(1); i <= 5; i++ {
		addStock(t, s, "a", i)
	}

	movements, err := s.ListMovements(ctx, "a", 3)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("count = %d, want 3", len(movements))
	}
	if movements[0].QtyDelta != 5 || movements[2].QtyDelta != 3 {
		t.Fatalf("deltas = [%d %d %d], want newest first", movements[0].QtyDelta, movements[1].QtyDelta, movements[2].QtyDelta)
	}

	if _, err := s.ListMovements(ctx, "ghost", 3); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown product err = %v, want ErrNotFound", err)
	}
}

func TestGetSalesSummaryBucketsByHourAndDay(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 0)
	addStock(t, s, "a", 100)

	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	mkSale := func(id string, bill string, at time.Time, totalCents int64) {
		t.Helper()
		_, err := s.CreateSale(ctx, domain.Sale{
			ID:            id,
			BillNo:        bill,
			SubtotalCents: totalCents,
			TotalCents:    totalCents,
			CreatedAt:     at,
			Items: []domain.SaleItem{{
				ProductID: "a", Qty: 1, UnitPriceCents: totalCents, UnitCostCents: totalCents - 500, LineTotalCents: totalCents,
			}},
			Payments: []domain.Payment{{Method: "cash", AmountCents: totalCents}},
		})
		if err != nil {
			t.Fatalf("sale %s: %v", id, err)
		}
	}

	mkSale("s1", "B-1", day.Add(9*time.Hour), 2000)
	mkSale("s2", "B-2", day.Add(9*time.Hour+30*time.Minute), 3000)
	mkSale("s3", "B-3", day.Add(15*time.Hour), 1000)
	mkSale("s4", "B-4", day.AddDate(0, 0, -2).Add(12*time.Hour), 9000)

	summary, err := s.GetSalesSummary(ctx, day)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.BillCount != 3 || summary.TotalSalesCents != 6000 {
		t.Fatalf("summary = %+v, want 3 bills at 6000", summary)
	}
	if summary.NetProfitCents != 1500 {
		t.Fatalf("profit = %d, want 1500", summary.NetProfitCents)
	}
	if len(summary.Hourly) != 2 || summary.Hourly[0].Hour != 9 || summary.Hourly[0].AmountCents != 5000 {
		t.Fatalf("hourly = %+v", summary.Hourly)
	}
	if len(summary.Daily) != 7 {
		t.Fatalf("daily window = %d, want 7", len(summary.Daily))
	}
	// The older sale shows up inside the 7-day trend, not in today's totals.
	var older int64
	for _, point := range summary.Daily {
		if point.Date == day.AddDate(0, 0, -2).Format("2006-01-02") {
			older = point.AmountCents
		}
	}
	if older != 9000 {
		t.Fatalf("trend for two days ago = %d, want 9000", older)
	}
}

func TestCreateAlertDedupsPerProductAndDay(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 5)

	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.CreateAlert(ctx, domain.Alert{
			ProductID: "a", Type: domain.AlertTypeLowStock, Message: "low", CreatedAt: at,
		}); err != nil {
			t.Fatalf("alert: %v", err)
		}
	}
	if err := s.CreateAlert(ctx, domain.Alert{
		ProductID: "a", Type: domain.AlertTypeLowStock, Message: "low again", CreatedAt: at.AddDate(0, 0, 1),
	}); err != nil {
		t.Fatalf("next-day alert: %v", err)
	}

	alerts, err := s.ListAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alert count = %d, want 2 (one per day)", len(alerts))
	}
}

func TestCreateProductRejectsDuplicateCodeAndBarcode(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := domain.Product{
		ID: "p1", Code: "PRD-2026-000001", Barcode: "4791234567890",
		Name: "first", SellingPriceCents: 1000,
	}
	if _, err := s.CreateProduct(ctx, base); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupCode := base
	dupCode.ID = "p2"
	dupCode.Barcode = "4790000000000"
	if _, err := s.CreateProduct(ctx, dupCode); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("dup code err = %v, want ErrValidation", err)
	}

	dupBarcode := base
	dupBarcode.ID = "p3"
	dupBarcode.Code = "PRD-2026-000002"
	if _, err := s.CreateProduct(ctx, dupBarcode); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("dup barcode err = %v, want ErrValidation", err)
	}
}

func TestVoidSaleOnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 0)
	addStock(t, s, "a", 10)

	if _, err := s.CreateSale(ctx, domain.Sale{
		ID: "s1", BillNo: "B-1", TotalCents: 1000,
		Items:    []domain.SaleItem{{ProductID: "a", Qty: 2, UnitPriceCents: 500, LineTotalCents: 1000}},
		Payments: []domain.Payment{{Method: "cash", AmountCents: 1000}},
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	if _, err := s.VoidSale(ctx, "s1", "test", "usr-admin", time.Now().UTC()); err != nil {
		t.Fatalf("void: %v", err)
	}
	if _, err := s.VoidSale(ctx, "s1", "test", "usr-admin", time.Now().UTC()); !errors.Is(err, store.ErrAlreadyVoided) {
		t.Fatalf("second void err = %v, want ErrAlreadyVoided", err)
	}
	if _, err := s.VoidSale(ctx, "ghost", "test", "usr-admin", time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown sale err = %v, want ErrNotFound", err)
	}
}
