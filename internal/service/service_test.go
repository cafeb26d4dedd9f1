package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, context.Context, context.Context) {
	t.Helper()
	svc := New(memory.New(), nil)
	adminCtx := WithActor(context.Background(), domain.Actor{
		UserID: "usr-admin", Username: "admin", Role: domain.RoleAdmin,
	})
	cashierCtx := WithActor(context.Background(), domain.Actor{
		UserID: "usr-cashier", Username: "cashier", Role: domain.RoleCashier,
	})
	return svc, adminCtx, cashierCtx
}

func createProduct(t *testing.T, svc *Service, ctx context.Context, name string, priceCents int64, costCents int64, taxBps int64, reorder int64) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:              name,
		SellingPriceCents: priceCents,
		CostPriceCents:    costCents,
		TaxRateBps:        taxBps,
		ReorderLevel:      reorder,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func stockUp(t *testing.T, svc *Service, ctx context.Context, productID string, qty int64) {
	t.Helper()
	_, err := svc.ApplyMovement(ctx, domain.ApplyMovementRequest{
		ProductID: productID,
		Type:      domain.MovementAdjustment,
		QtyDelta:  qty,
		Note:      "initial stock",
	})
	if err != nil {
		t.Fatalf("stock up %s: %v", productID, err)
	}
}

func TestProductCreationInitializesStockAtZero(t *testing.T) {
	svc, admin, _ := newTestService(t)
	product := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)

	if !strings.HasPrefix(product.Code, "PRD-") {
		t.Fatalf("code = %q, want PRD- prefix", product.Code)
	}

	stock, err := svc.CurrentQty(admin, product.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 0 {
		t.Fatalf("new product qty = %d, want 0", stock.CurrentQty)
	}
}

func TestApplyMovementRejectsOverdraw(t *testing.T) {
	svc, admin, _ := newTestService(t)
	product := createProduct(t, svc, admin, "Sugar 1kg", 32000, 25000, 0, 5)
	stockUp(t, svc, admin, product.ID, 10)

	_, err := svc.ApplyMovement(admin, domain.ApplyMovementRequest{
		ProductID: product.ID,
		Type:      domain.MovementAdjustment,
		QtyDelta:  -11,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("overdraw err = %v, want ErrInsufficientStock", err)
	}

	// The rejected movement must leave no trace in qty or history.
	stock, err := svc.CurrentQty(admin, product.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 10 {
		t.Fatalf("qty after rejected overdraw = %d, want 10", stock.CurrentQty)
	}
	movements, err := svc.StockHistory(admin, product.ID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want 1", len(movements))
	}
}

func TestApplyMovementRejectsEngineOwnedTypes(t *testing.T) {
	svc, admin, _ := newTestService(t)
	product := createProduct(t, svc, admin, "Tea 200g", 48000, 40000, 0, 5)

	for _, typ := range []string{domain.MovementSale, domain.MovementPurchase} {
		_, err := svc.ApplyMovement(admin, domain.ApplyMovementRequest{
			ProductID: product.ID,
			Type:      typ,
			QtyDelta:  5,
		})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("manual %s movement err = %v, want ErrValidation", typ, err)
		}
	}
}

func TestStockHistoryNewestFirst(t *testing.T) {
	svc, admin, _ := newTestService(t)
	product := createProduct(t, svc, admin, "Milk 1l", 54000, 47000, 0, 5)

	stockUp(t, svc, admin, product.ID, 20)
	if _, err := svc.ApplyMovement(admin, domain.ApplyMovementRequest{
		ProductID: product.ID, Type: domain.MovementAdjustment, QtyDelta: -3, Note: "damaged",
	}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	movements, err := svc.StockHistory(admin, product.ID, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("movement count = %d, want 2", len(movements))
	}
	if movements[0].QtyDelta != -3 || movements[1].QtyDelta != 20 {
		t.Fatalf("order = [%+d %+d], want newest first", movements[0].QtyDelta, movements[1].QtyDelta)
	}
}

func TestCreateSaleDecrementsStockPerLine(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	sugar := createProduct(t, svc, admin, "Sugar 1kg", 32000, 25000, 0, 5)
	stockUp(t, svc, admin, rice.ID, 50)
	stockUp(t, svc, admin, sugar.ID, 50)

	sale, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items: []domain.SaleLineRequest{
			{ProductID: rice.ID, Qty: 2},
			{ProductID: sugar.ID, Qty: 3},
		},
		Payments: []domain.PaymentRequest{
			{Method: "cash", AmountCents: 596000},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 596000 {
		t.Fatalf("total = %d, want 596000", sale.TotalCents)
	}
	if !strings.HasPrefix(sale.BillNo, "BILL-") {
		t.Fatalf("bill no = %q, want BILL- prefix", sale.BillNo)
	}

	for _, tc := range []struct {
		id   string
		want int64
	}{{rice.ID, 48}, {sugar.ID, 47}} {
		stock, err := svc.CurrentQty(admin, tc.id)
		if err != nil {
			t.Fatalf("current qty: %v", err)
		}
		if stock.CurrentQty != tc.want {
			t.Fatalf("qty for %s = %d, want %d", tc.id, stock.CurrentQty, tc.want)
		}
	}

	movements, err := svc.StockHistory(admin, rice.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if movements[0].Type != domain.MovementSale || movements[0].RefID != sale.ID {
		t.Fatalf("sale movement = %+v, want type sale referencing %s", movements[0], sale.ID)
	}
}

func TestCreateSaleComputesPerLineTaxAndDiscount(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	// 10% tax on a 25.00 item, 5.00 discount across 3 units.
	taxed := createProduct(t, svc, admin, "Biscuits", 2500, 1500, 1000, 5)
	stockUp(t, svc, admin, taxed.ID, 20)

	sale, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items: []domain.SaleLineRequest{
			{ProductID: taxed.ID, Qty: 3, DiscountCents: 500},
		},
		Payments: []domain.PaymentRequest{
			{Method: "card", AmountCents: 7700, Reference: "AUTH-1234"},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	// gross 7500, discount 500, tax 10% of 7000 = 700, total 7700.
	if sale.SubtotalCents != 7500 || sale.DiscountCents != 500 || sale.TaxCents != 700 || sale.TotalCents != 7700 {
		t.Fatalf("totals = %d/%d/%d/%d, want 7500/500/700/7700",
			sale.SubtotalCents, sale.DiscountCents, sale.TaxCents, sale.TotalCents)
	}
	if sale.Items[0].UnitCostCents != 1500 {
		t.Fatalf("cost snapshot = %d, want 1500", sale.Items[0].UnitCostCents)
	}
}

func TestCreateSalePaymentMismatchPersistsNothing(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 50)

	_, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 1}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 249999}},
	})
	if !errors.Is(err, store.ErrPaymentMismatch) {
		t.Fatalf("short payment err = %v, want ErrPaymentMismatch", err)
	}

	stock, err := svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 50 {
		t.Fatalf("qty after failed sale = %d, want 50", stock.CurrentQty)
	}
	sales, err := svc.ListSales(cashier, time.Time{}, time.Time{}, "", 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("sale count after mismatch = %d, want 0", len(sales))
	}
}

func TestCreateSaleInsufficientStockRollsBackWholeSale(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	sugar := createProduct(t, svc, admin, "Sugar 1kg", 32000, 25000, 0, 5)
	stockUp(t, svc, admin, rice.ID, 50)
	stockUp(t, svc, admin, sugar.ID, 2)

	_, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items: []domain.SaleLineRequest{
			{ProductID: rice.ID, Qty: 1},
			{ProductID: sugar.ID, Qty: 3},
		},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 346000}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// Neither line may have moved.
	for _, tc := range []struct {
		id   string
		want int64
	}{{rice.ID, 50}, {sugar.ID, 2}} {
		stock, err := svc.CurrentQty(admin, tc.id)
		if err != nil {
			t.Fatalf("current qty: %v", err)
		}
		if stock.CurrentQty != tc.want {
			t.Fatalf("qty for %s = %d, want %d", tc.id, stock.CurrentQty, tc.want)
		}
	}
}

func TestCreateSaleRejectsDuplicateBillNo(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 50)

	req := domain.SaleCreateRequest{
		BillNo:   "BILL-20260831-000042",
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 1}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 250000}},
	}
	if _, err := svc.CreateSale(cashier, req); err != nil {
		t.Fatalf("first sale: %v", err)
	}
	if _, err := svc.CreateSale(cashier, req); !errors.Is(err, store.ErrDuplicateBill) {
		t.Fatalf("retry err = %v, want ErrDuplicateBill", err)
	}

	stock, err := svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 49 {
		t.Fatalf("qty = %d, want 49 (retry must not double-decrement)", stock.CurrentQty)
	}
}

func TestVoidSaleRestoresStockWithCompensatingMovements(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 50)

	sale, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 4}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 1000000}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	voided, err := svc.VoidSale(admin, sale.ID, "customer returned order")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided {
		t.Fatalf("status = %q, want voided", voided.Status)
	}

	stock, err := svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 50 {
		t.Fatalf("qty after void = %d, want 50", stock.CurrentQty)
	}

	// Original sale movement stays; a compensating entry references the sale.
	movements, err := svc.StockHistory(admin, rice.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("movement count = %d, want 3", len(movements))
	}
	if movements[0].Type != domain.MovementReturn || movements[0].QtyDelta != 4 || movements[0].RefID != sale.ID {
		t.Fatalf("compensating movement = %+v", movements[0])
	}

	if _, err := svc.VoidSale(admin, sale.ID, "again"); !errors.Is(err, store.ErrAlreadyVoided) {
		t.Fatalf("second void err = %v, want ErrAlreadyVoided", err)
	}
}

func TestPendingPurchaseHasNoStockEffect(t *testing.T) {
	svc, admin, _ := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)

	purchase, err := svc.CreatePurchaseOrder(admin, domain.PurchaseCreateRequest{
		RefNo: "GRN-77",
		Items: []domain.PurchaseLineRequest{{ProductID: rice.ID, Qty: 40, UnitCostCents: 200000}},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if purchase.Status != domain.PurchaseStatusPending {
		t.Fatalf("status = %q, want pending", purchase.Status)
	}
	if purchase.TotalCents != 8000000 {
		t.Fatalf("total = %d, want 8000000", purchase.TotalCents)
	}

	stock, err := svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 0 {
		t.Fatalf("qty with pending purchase = %d, want 0", stock.CurrentQty)
	}
}

func TestReceivePurchaseAppliesStockExactlyOnce(t *testing.T) {
	svc, admin, _ := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)

	purchase, err := svc.CreatePurchaseOrder(admin, domain.PurchaseCreateRequest{
		Items: []domain.PurchaseLineRequest{{ProductID: rice.ID, Qty: 40, UnitCostCents: 200000}},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	received, err := svc.ReceivePurchase(admin, purchase.ID)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.Status != domain.PurchaseStatusReceived {
		t.Fatalf("status = %q, want received", received.Status)
	}

	stock, err := svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 40 {
		t.Fatalf("qty after receive = %d, want 40", stock.CurrentQty)
	}

	if _, err := svc.ReceivePurchase(admin, purchase.ID); !errors.Is(err, store.ErrAlreadyReceived) {
		t.Fatalf("second receive err = %v, want ErrAlreadyReceived", err)
	}
	stock, err = svc.CurrentQty(admin, rice.ID)
	if err != nil {
		t.Fatalf("current qty: %v", err)
	}
	if stock.CurrentQty != 40 {
		t.Fatalf("qty after repeated receive = %d, want 40", stock.CurrentQty)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	svc, admin, _ := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 30)

	first, err := svc.Reconcile(admin, rice.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if first.Drift != 0 || first.After != 30 {
		t.Fatalf("first reconcile = %+v, want no drift at 30", first)
	}

	second, err := svc.Reconcile(admin, rice.ID)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Drift != 0 || second.After != first.After {
		t.Fatalf("second reconcile = %+v, want identical to first", second)
	}
}

func TestLowStockListingAndAlert(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	sugar := createProduct(t, svc, admin, "Sugar 1kg", 32000, 25000, 0, 5)
	stockUp(t, svc, admin, rice.ID, 11)
	stockUp(t, svc, admin, sugar.ID, 100)

	// Selling 2 drops rice to 9, under its reorder level of 10.
	if _, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 2}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 500000}},
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	items, err := svc.LowStock(admin, 10)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != rice.ID {
		t.Fatalf("low stock = %+v, want only rice", items)
	}

	alerts, err := svc.ListAlerts(admin, 10)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != domain.AlertTypeLowStock || alerts[0].ProductID != rice.ID {
		t.Fatalf("alerts = %+v, want one low_stock alert for rice", alerts)
	}

	// A second crossing the same day is deduplicated.
	if _, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 1}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 250000}},
	}); err != nil {
		t.Fatalf("second sale: %v", err)
	}
	alerts, err = svc.ListAlerts(admin, 10)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alert count = %d, want 1 (deduped per day)", len(alerts))
	}
}

func TestDeactivatedProductKeepsHistoryButCannotSell(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 20)

	if err := svc.DeactivateProduct(admin, rice.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	products, err := svc.ListProducts(admin, false)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("active product count = %d, want 0", len(products))
	}

	_, err = svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 1}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 250000}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("sale of inactive product err = %v, want ErrValidation", err)
	}

	movements, err := svc.StockHistory(admin, rice.ID, 10)
	if err != nil {
		t.Fatalf("history after deactivate: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want history retained", len(movements))
	}
}

func TestDashboardProfitUsesCostSnapshot(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 20)

	if _, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 2}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 500000}},
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// Raising the cost afterwards must not rewrite the sold margin.
	newCost := int64(240000)
	if _, err := svc.UpdateProduct(admin, rice.ID, domain.ProductUpdateRequest{CostPriceCents: &newCost}); err != nil {
		t.Fatalf("update cost: %v", err)
	}

	summary, err := svc.Dashboard(admin, time.Now().UTC())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.BillCount != 1 || summary.TotalSalesCents != 500000 {
		t.Fatalf("summary = %+v, want 1 bill at 500000", summary)
	}
	if summary.NetProfitCents != 100000 {
		t.Fatalf("profit = %d, want 100000 from the snapshot cost", summary.NetProfitCents)
	}
	if summary.AvgBillCents != 500000 {
		t.Fatalf("avg bill = %d, want 500000", summary.AvgBillCents)
	}
	if len(summary.Daily) != 7 {
		t.Fatalf("daily window = %d days, want 7", len(summary.Daily))
	}
}

func TestVoidedSalesDropOutOfDashboard(t *testing.T) {
	svc, admin, cashier := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 20)

	sale, err := svc.CreateSale(cashier, domain.SaleCreateRequest{
		Items:    []domain.SaleLineRequest{{ProductID: rice.ID, Qty: 1}},
		Payments: []domain.PaymentRequest{{Method: "cash", AmountCents: 250000}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := svc.VoidSale(admin, sale.ID, "entry error"); err != nil {
		t.Fatalf("void: %v", err)
	}

	summary, err := svc.Dashboard(admin, time.Now().UTC())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.BillCount != 0 || summary.TotalSalesCents != 0 {
		t.Fatalf("summary after void = %+v, want empty", summary)
	}
}

func TestMutationsRequireActor(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		Name: "No actor", SellingPriceCents: 100,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("actorless create err = %v, want ErrValidation", err)
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	svc, admin, _ := newTestService(t)
	rice := createProduct(t, svc, admin, "Rice 5kg", 250000, 200000, 0, 10)
	stockUp(t, svc, admin, rice.ID, 5)

	logs, err := svc.ListAuditLogs(admin, time.Time{}, time.Time{}, 50)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("audit count = %d, want 2", len(logs))
	}
	for _, entry := range logs {
		if entry.ActorID != "usr-admin" {
			t.Fatalf("audit actor = %q, want usr-admin", entry.ActorID)
		}
	}
}
