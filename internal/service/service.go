// Package service implements the business operations on top of a store.
// Every mutating operation requires an actor on the context and leaves an
// audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/money"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/report"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/xid"
)

type actorContextKey struct{}

// WithActor attaches the authenticated actor to the context. There is no
// ambient session state; every call carries its actor explicitly.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports *report.Engine
}

func New(repo store.Repository, reports *report.Engine) *Service {
	if reports == nil {
		reports = report.NewEngine(nil, 0)
	}
	return &Service{repo: repo, reports: reports}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing actor", store.ErrValidation)
	}
	return actor, nil
}

// --- catalog ---

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	if req.SellingPriceCents < 1 {
		return nil, fmt.Errorf("%w: selling price must be positive", store.ErrValidation)
	}
	if req.CostPriceCents < 0 || req.ReorderLevel < 0 || req.TaxRateBps < 0 {
		return nil, fmt.Errorf("%w: negative cost, reorder level or tax rate", store.ErrValidation)
	}

	code, err := s.nextProductCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:                xid.New("prd"),
		Code:              code,
		Barcode:           req.Barcode,
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		Brand:             req.Brand,
		Unit:              req.Unit,
		CostPriceCents:    req.CostPriceCents,
		SellingPriceCents: req.SellingPriceCents,
		ReorderLevel:      req.ReorderLevel,
		SupplierID:        req.SupplierID,
		TaxRateBps:        req.TaxRateBps,
		Metadata:          req.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "product.create", "product", product.ID, product.Code)
	return product, nil
}

// nextProductCode issues codes of the form PRD-YYYY-NNNNNN, sequential
// within the year.
func (s *Service) nextProductCode(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("PRD-%d-", time.Now().UTC().Year())
	count, err := s.repo.CountProductsWithCodePrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%06d", prefix, count+1), nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Barcode != nil {
		updated.Barcode = *req.Barcode
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.Brand != nil {
		updated.Brand = *req.Brand
	}
	if req.Unit != nil {
		updated.Unit = *req.Unit
	}
	if req.CostPriceCents != nil {
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.SellingPriceCents != nil {
		updated.SellingPriceCents = *req.SellingPriceCents
	}
	if req.ReorderLevel != nil {
		updated.ReorderLevel = *req.ReorderLevel
	}
	if req.SupplierID != nil {
		updated.SupplierID = *req.SupplierID
	}
	if req.TaxRateBps != nil {
		updated.TaxRateBps = *req.TaxRateBps
	}
	if req.Metadata != nil {
		updated.Metadata = *req.Metadata
	}

	product, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "product.update", "product", product.ID, "")
	return product, nil
}

// DeactivateProduct soft-deletes: the product drops out of listings and new
// sales, but its ledger and sale history stay intact.
func (s *Service) DeactivateProduct(ctx context.Context, id string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, actor, "product.deactivate", "product", id, "")
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	category, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:        xid.New("cat"),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, actor, "category.create", "category", category.ID, name)
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	supplier, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:            xid.New("sup"),
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, actor, "supplier.create", "supplier", supplier.ID, req.Name)
	return supplier, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) DeactivateSupplier(ctx context.Context, id string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, actor, "supplier.deactivate", "supplier", id, "")
	return nil
}

// --- stock ledger ---

// ApplyMovement records a manual stock movement. Sale and purchase movements
// are written by their engines; the manual path only accepts adjustment,
// correction and return types.
func (s *Service) ApplyMovement(ctx context.Context, req domain.ApplyMovementRequest) (*domain.ApplyMovementResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case domain.MovementAdjustment, domain.MovementCorrection, domain.MovementReturn:
	default:
		return nil, fmt.Errorf("%w: movement type %q is not manually applicable", store.ErrValidation, req.Type)
	}
	if req.QtyDelta == 0 {
		return nil, fmt.Errorf("%w: qty_delta must be non-zero", store.ErrValidation)
	}

	movement, newQty, err := s.repo.ApplyMovement(ctx, domain.StockMovement{
		ProductID: req.ProductID,
		Type:      req.Type,
		QtyDelta:  req.QtyDelta,
		Note:      req.Note,
		ActorID:   actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	if req.QtyDelta < 0 {
		s.alertIfLowStock(ctx, req.ProductID)
	}
	s.logAudit(ctx, actor, "stock.movement", "product", req.ProductID,
		fmt.Sprintf("%s %+d", req.Type, req.QtyDelta))

	return &domain.ApplyMovementResponse{
		ProductID:  req.ProductID,
		MovementID: movement.ID,
		NewQty:     newQty,
	}, nil
}

func (s *Service) CurrentQty(ctx context.Context, productID string) (*domain.Stock, error) {
	return s.repo.GetStock(ctx, productID)
}

func (s *Service) StockHistory(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	return s.repo.ListMovements(ctx, productID, limit)
}

func (s *Service) LowStock(ctx context.Context, limit int) ([]domain.LowStockItem, error) {
	return s.repo.ListLowStock(ctx, limit)
}

// Reconcile rebuilds the cached quantity from the movement ledger. Running
// it twice in a row reports zero drift the second time.
func (s *Service) Reconcile(ctx context.Context, productID string) (domain.ReconcileResult, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	result, err := s.repo.ReconcileStock(ctx, productID)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	s.logAudit(ctx, actor, "stock.reconcile", "product", productID,
		fmt.Sprintf("drift %+d", result.Drift))
	return result, nil
}

// alertIfLowStock raises a low-stock alert when the product has crossed its
// reorder level. It runs after the stock write committed; a failure here is
// logged and never unwinds the stock change.
func (s *Service) alertIfLowStock(ctx context.Context, productID string) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		log.Printf("WARN low stock check failed for %s: %v", productID, err)
		return
	}
	stock, err := s.repo.GetStock(ctx, productID)
	if err != nil {
		log.Printf("WARN low stock check failed for %s: %v", productID, err)
		return
	}
	if stock.CurrentQty > product.ReorderLevel {
		return
	}

	err = s.repo.CreateAlert(ctx, domain.Alert{
		ID:        xid.New("alert"),
		ProductID: productID,
		Type:      domain.AlertTypeLowStock,
		Message:   fmt.Sprintf("%s (%s) at %d, reorder level %d", product.Name, product.Code, stock.CurrentQty, product.ReorderLevel),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("WARN low stock alert failed for %s: %v", productID, err)
	}
}

// --- sales ---

// CreateSale prices the cart, verifies the payments cover the total exactly,
// and persists the sale with its stock movements in one shot.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale needs at least one item", store.ErrValidation)
	}
	if len(req.Payments) == 0 {
		return nil, fmt.Errorf("%w: sale needs at least one payment", store.ErrValidation)
	}

	ids := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ProductID == "" {
			return nil, fmt.Errorf("%w: item without product id", store.ErrValidation)
		}
		if line.Qty < 1 {
			return nil, fmt.Errorf("%w: item qty must be at least 1", store.ErrValidation)
		}
		if line.DiscountCents < 0 {
			return nil, fmt.Errorf("%w: negative discount", store.ErrValidation)
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := decimal.Zero
	total := decimal.Zero
	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, lineReq := range req.Items {
		product, ok := products[lineReq.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %s", store.ErrValidation, lineReq.ProductID)
		}
		if product.Status != domain.ProductStatusActive {
			return nil, fmt.Errorf("%w: product %s is inactive", store.ErrValidation, product.Code)
		}

		unitPrice := product.SellingPriceCents
		if lineReq.UnitPriceCents != nil {
			if *lineReq.UnitPriceCents < 0 {
				return nil, fmt.Errorf("%w: negative unit price", store.ErrValidation)
			}
			unitPrice = *lineReq.UnitPriceCents
		}

		line := money.ComputeLine(lineReq.Qty, unitPrice, lineReq.DiscountCents, product.TaxRateBps)
		subtotal = subtotal.Add(money.FromCents(line.GrossCents))
		tax = tax.Add(money.FromCents(line.TaxCents))
		discount = discount.Add(money.FromCents(line.DiscountCents))
		total = total.Add(money.FromCents(line.TotalCents))

		items = append(items, domain.SaleItem{
			ProductID:      lineReq.ProductID,
			Qty:            lineReq.Qty,
			UnitPriceCents: unitPrice,
			UnitCostCents:  product.CostPriceCents,
			DiscountCents:  line.DiscountCents,
			TaxRateBps:     product.TaxRateBps,
			TaxCents:       line.TaxCents,
			LineTotalCents: line.TotalCents,
		})
	}

	totalCents := money.Cents(total)
	paid := int64(0)
	payments := make([]domain.Payment, 0, len(req.Payments))
	for _, p := range req.Payments {
		if p.Method == "" {
			return nil, fmt.Errorf("%w: payment without method", store.ErrValidation)
		}
		if p.AmountCents < 1 {
			return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
		}
		paid += p.AmountCents
		payments = append(payments, domain.Payment{
			Method:      p.Method,
			AmountCents: p.AmountCents,
			Reference:   p.Reference,
		})
	}
	if paid != totalCents {
		return nil, fmt.Errorf("%w: paid %d, total %d", store.ErrPaymentMismatch, paid, totalCents)
	}

	now := time.Now().UTC()
	billNo := req.BillNo
	if billNo == "" {
		billNo = nextBillNo(now)
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		ID:            xid.New("sale"),
		BillNo:        billNo,
		CashierID:     actor.UserID,
		SubtotalCents: money.Cents(subtotal),
		TaxCents:      money.Cents(tax),
		DiscountCents: money.Cents(discount),
		TotalCents:    totalCents,
		Status:        domain.SaleStatusCompleted,
		CreatedAt:     now,
		Items:         items,
		Payments:      payments,
	})
	if err != nil {
		return nil, err
	}

	for _, id := range uniqueIDs(ids) {
		s.alertIfLowStock(ctx, id)
	}
	s.logAudit(ctx, actor, "sale.create", "sale", sale.ID, sale.BillNo)

	return sale, nil
}

// nextBillNo builds a bill number unique enough for a single till. The
// database still enforces uniqueness, so a collision fails the sale rather
// than double-charging.
func nextBillNo(now time.Time) string {
	return fmt.Sprintf("BILL-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSaleByID(ctx, id)
}

func (s *Service) ListSales(ctx context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to, status, limit)
}

// VoidSale reverses a completed sale with compensating stock movements that
// reference it. The sale row stays for the audit trail.
func (s *Service) VoidSale(ctx context.Context, id string, reason string) (*domain.Sale, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: void reason is required", store.ErrValidation)
	}

	sale, err := s.repo.VoidSale(ctx, id, reason, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "sale.void", "sale", id, reason)
	return sale, nil
}

// --- purchasing ---

// CreatePurchaseOrder records a pending order. Stock does not move until the
// goods are received.
func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: purchase needs at least one item", store.ErrValidation)
	}

	ids := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ProductID == "" || line.Qty < 1 || line.UnitCostCents < 0 {
			return nil, fmt.Errorf("%w: invalid purchase line", store.ErrValidation)
		}
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := int64(0)
	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for _, line := range req.Items {
		if _, ok := products[line.ProductID]; !ok {
			return nil, fmt.Errorf("%w: unknown product %s", store.ErrValidation, line.ProductID)
		}
		lineTotal := line.Qty * line.UnitCostCents
		total += lineTotal
		items = append(items, domain.PurchaseItem{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitCostCents:  line.UnitCostCents,
			LineTotalCents: lineTotal,
		})
	}

	purchase, err := s.repo.CreatePurchase(ctx, domain.Purchase{
		ID:         xid.New("po"),
		RefNo:      req.RefNo,
		SupplierID: req.SupplierID,
		TotalCents: total,
		CreatedBy:  actor.UserID,
		CreatedAt:  time.Now().UTC(),
		Items:      items,
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "purchase.create", "purchase", purchase.ID, "")
	return purchase, nil
}

func (s *Service) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	return s.repo.GetPurchaseByID(ctx, id)
}

func (s *Service) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, status, limit)
}

// ReceivePurchase applies the order's stock movements exactly once.
func (s *Service) ReceivePurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	purchase, err := s.repo.ReceivePurchase(ctx, id, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "purchase.receive", "purchase", id, "")
	return purchase, nil
}

// --- reporting ---

func (s *Service) Dashboard(ctx context.Context, day time.Time) (*domain.DashboardSummary, error) {
	return s.reports.Summary(ctx, day, s.repo)
}

func (s *Service) ListAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx, limit)
}

// --- settings + audit ---

func (s *Service) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	return s.repo.GetSetting(ctx, key)
}

func (s *Service) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	return s.repo.ListSettings(ctx)
}

func (s *Service) SetSetting(ctx context.Context, key string, value string, description string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: key is required", store.ErrValidation)
	}
	if err := s.repo.SetSetting(ctx, domain.Setting{
		Key:         key,
		Value:       value,
		Description: description,
	}); err != nil {
		return err
	}
	s.logAudit(ctx, actor, "setting.set", "setting", key, value)
	return nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// logAudit records who did what. Audit failures are logged and swallowed so
// they never fail the operation they describe.
func (s *Service) logAudit(ctx context.Context, actor domain.Actor, action string, entityType string, entityID string, detail string) {
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         uuid.NewString(),
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("WARN audit log failed for %s on %s/%s: %v", action, entityType, entityID, err)
	}
}
