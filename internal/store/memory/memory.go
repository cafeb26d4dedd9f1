package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/xid"
)

// Store is the in-memory Repository. A single mutex scopes every mutation,
// which gives the same serialization the postgres store gets from
// row locks: a movement and its stock update are observed together or not
// at all.
type Store struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	stocks      map[string]domain.Stock
	movements   map[string][]domain.StockMovement
	sales       map[string]domain.Sale
	salesByBill map[string]string
	purchases   map[string]domain.Purchase
	categories  map[string]domain.Category
	suppliers   map[string]domain.Supplier
	alerts      []domain.Alert
	alertKeys   map[string]struct{}
	auditLogs   []domain.AuditLog
	settings    map[string]domain.Setting
	users       map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		stocks:      make(map[string]domain.Stock),
		movements:   make(map[string][]domain.StockMovement),
		sales:       make(map[string]domain.Sale),
		salesByBill: make(map[string]string),
		purchases:   make(map[string]domain.Purchase),
		categories:  make(map[string]domain.Category),
		suppliers:   make(map[string]domain.Supplier),
		alerts:      make([]domain.Alert, 0, 32),
		alertKeys:   make(map[string]struct{}),
		auditLogs:   make([]domain.AuditLog, 0, 128),
		settings:    make(map[string]domain.Setting),
		users:       make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with a small catalog, opening stock and
// dev users for demo mode. Opening stock goes in through the movement path so
// the ledger invariant (current qty == sum of movements) holds from the start.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "prd-seed-01", Code: "PRD-2025-000001", Name: "Rice 5kg", CategoryID: "cat-grocery", Unit: "bag", CostPriceCents: 112000, SellingPriceCents: 129900, ReorderLevel: 10, TaxRateBps: 0, Status: domain.ProductStatusActive},
		{ID: "prd-seed-02", Code: "PRD-2025-000002", Name: "Sunflower Oil 1L", CategoryID: "cat-grocery", Unit: "bottle", CostPriceCents: 54000, SellingPriceCents: 64500, ReorderLevel: 12, TaxRateBps: 800, Status: domain.ProductStatusActive},
		{ID: "prd-seed-03", Code: "PRD-2025-000003", Name: "Ceylon Tea 200g", CategoryID: "cat-beverage", Unit: "pack", CostPriceCents: 38000, SellingPriceCents: 46000, ReorderLevel: 8, TaxRateBps: 800, Status: domain.ProductStatusActive},
		{ID: "prd-seed-04", Code: "PRD-2025-000004", Name: "Milk Powder 400g", CategoryID: "cat-dairy", Unit: "tin", CostPriceCents: 98000, SellingPriceCents: 115000, ReorderLevel: 15, TaxRateBps: 0, Status: domain.ProductStatusActive},
		{ID: "prd-seed-05", Code: "PRD-2025-000005", Name: "Washing Soap", CategoryID: "cat-household", Unit: "pc", CostPriceCents: 14000, SellingPriceCents: 18500, ReorderLevel: 20, TaxRateBps: 1200, Status: domain.ProductStatusActive},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.stocks[p.ID] = domain.Stock{ProductID: p.ID, CurrentQty: 0, LastUpdated: now}
		if _, _, err := s.applyMovementLocked(domain.StockMovement{
			ProductID: p.ID,
			Type:      domain.MovementPurchase,
			QtyDelta:  60,
			Note:      "opening stock",
			ActorID:   "system",
		}); err != nil {
			log.Fatalf("[memory-store] failed to seed stock for %s: %v", p.ID, err)
		}
	}

	s.categories["cat-grocery"] = domain.Category{ID: "cat-grocery", Name: "Grocery", Status: domain.ProductStatusActive, CreatedAt: now}
	s.categories["cat-beverage"] = domain.Category{ID: "cat-beverage", Name: "Beverage", Status: domain.ProductStatusActive, CreatedAt: now}
	s.categories["cat-dairy"] = domain.Category{ID: "cat-dairy", Name: "Dairy", Status: domain.ProductStatusActive, CreatedAt: now}
	s.categories["cat-household"] = domain.Category{ID: "cat-household", Name: "Household", Status: domain.ProductStatusActive, CreatedAt: now}

	s.suppliers["sup-seed-01"] = domain.Supplier{ID: "sup-seed-01", Name: "Lanka Wholesale", ContactPerson: "N. Perera", Phone: "0112000000", Status: domain.ProductStatusActive, CreatedAt: now}

	s.users = seedUsers()
	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        "usr-" + u.username,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- catalog ---

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !includeInactive && p.Status != domain.ProductStatusActive {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Code, b.Code)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Code == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.ReorderLevel < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}
	for _, existing := range s.products {
		if existing.Code == product.Code {
			return nil, store.ErrValidation
		}
		if product.Barcode != "" && existing.Barcode == product.Barcode {
			return nil, store.ErrValidation
		}
	}

	now := time.Now().UTC()
	product.Status = domain.ProductStatusActive
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.products[product.ID] = cloneProduct(product)
	// One stock row per product, from birth, at zero.
	s.stocks[product.ID] = domain.Stock{ProductID: product.ID, CurrentQty: 0, LastUpdated: now}

	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneProduct(p)
	return &found, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = cloneProduct(p)
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.ReorderLevel < 0 {
		return nil, store.ErrValidation
	}

	product.Code = existing.Code
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = cloneProduct(product)

	saved := cloneProduct(product)
	return &saved, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = domain.ProductStatusInactive
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) CountProductsWithCodePrefix(_ context.Context, prefix string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := int64(0)
	for _, p := range s.products {
		if strings.HasPrefix(p.Code, prefix) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" || category.Name == "" {
		return nil, store.ErrValidation
	}
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrValidation
		}
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.Status = domain.ProductStatusActive
	s.categories[category.ID] = category

	created := category
	return &created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.ID == "" || supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	supplier.Status = domain.ProductStatusActive
	s.suppliers[supplier.ID] = supplier

	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmpString(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) DeactivateSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return store.ErrNotFound
	}
	sup.Status = domain.ProductStatusInactive
	s.suppliers[id] = sup
	return nil
}

// --- stock ledger ---

func (s *Store) ApplyMovement(_ context.Context, movement domain.StockMovement) (*domain.StockMovement, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyMovementLocked(movement)
}

// applyMovementLocked inserts one movement row and moves the stock row by the
// delta as a single unit. A delta that would drive the quantity negative
// rejects the whole movement; neither row changes. Callers hold s.mu.
func (s *Store) applyMovementLocked(movement domain.StockMovement) (*domain.StockMovement, int64, error) {
	if movement.ProductID == "" || movement.QtyDelta == 0 {
		return nil, 0, store.ErrValidation
	}
	if _, ok := s.products[movement.ProductID]; !ok {
		return nil, 0, store.ErrNotFound
	}

	current := s.stocks[movement.ProductID]
	next := current.CurrentQty + movement.QtyDelta
	if next < 0 {
		return nil, 0, store.ErrInsufficientStock
	}

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	s.movements[movement.ProductID] = append(s.movements[movement.ProductID], movement)
	s.stocks[movement.ProductID] = domain.Stock{
		ProductID:   movement.ProductID,
		CurrentQty:  next,
		LastUpdated: movement.CreatedAt,
	}

	applied := movement
	return &applied, next, nil
}

func (s *Store) GetStock(_ context.Context, productID string) (*domain.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, ok := s.stocks[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := stock
	return &found, nil
}

func (s *Store) ListMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.products[productID]; !ok {
		return nil, store.ErrNotFound
	}

	history := s.movements[productID]
	result := make([]domain.StockMovement, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		result = append(result, history[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListLowStock(_ context.Context, limit int) ([]domain.LowStockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.LowStockItem, 0, 16)
	for id, p := range s.products {
		if p.Status != domain.ProductStatusActive {
			continue
		}
		stock := s.stocks[id]
		if stock.CurrentQty > p.ReorderLevel {
			continue
		}
		items = append(items, domain.LowStockItem{
			ProductID:    id,
			Code:         p.Code,
			Name:         p.Name,
			CurrentQty:   stock.CurrentQty,
			ReorderLevel: p.ReorderLevel,
		})
	}

	slices.SortFunc(items, func(a, b domain.LowStockItem) int {
		if a.CurrentQty != b.CurrentQty {
			if a.CurrentQty < b.CurrentQty {
				return -1
			}
			return 1
		}
		return cmpString(a.Name, b.Name)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ReconcileStock(_ context.Context, productID string) (domain.ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return domain.ReconcileResult{}, store.ErrNotFound
	}

	before := s.stocks[productID].CurrentQty
	after := int64(0)
	for _, m := range s.movements[productID] {
		after += m.QtyDelta
	}

	s.stocks[productID] = domain.Stock{
		ProductID:   productID,
		CurrentQty:  after,
		LastUpdated: time.Now().UTC(),
	}

	return domain.ReconcileResult{
		ProductID: productID,
		Before:    before,
		After:     after,
		Drift:     after - before,
	}, nil
}

// --- sales ---

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || sale.BillNo == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.salesByBill[sale.BillNo]; exists {
		return nil, store.ErrDuplicateBill
	}

	paid := int64(0)
	for _, p := range sale.Payments {
		paid += p.AmountCents
	}
	if paid != sale.TotalCents {
		return nil, store.ErrPaymentMismatch
	}

	// Fixed ordering across products matches the postgres store's lock order.
	items := slices.Clone(sale.Items)
	slices.SortFunc(items, func(a, b domain.SaleItem) int {
		return cmpString(a.ProductID, b.ProductID)
	})

	// Validate every line against current stock before touching anything so a
	// late insufficient-stock failure cannot leave a partial decrement.
	required := make(map[string]int64, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return nil, store.ErrValidation
		}
		p, ok := s.products[item.ProductID]
		if !ok || p.Status != domain.ProductStatusActive {
			return nil, store.ErrValidation
		}
		required[item.ProductID] += item.Qty
	}
	for productID, qty := range required {
		if s.stocks[productID].CurrentQty < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	for i := range items {
		items[i].SaleID = sale.ID
		if _, _, err := s.applyMovementLocked(domain.StockMovement{
			ProductID: items[i].ProductID,
			Type:      domain.MovementSale,
			QtyDelta:  -items[i].Qty,
			RefID:     sale.ID,
			RefType:   "sale",
			ActorID:   sale.CashierID,
			CreatedAt: sale.CreatedAt,
		}); err != nil {
			return nil, err
		}
	}
	sale.Items = items

	payments := slices.Clone(sale.Payments)
	for i := range payments {
		payments[i].SaleID = sale.ID
	}
	sale.Payments = payments

	s.sales[sale.ID] = cloneSale(sale)
	s.salesByBill[sale.BillNo] = sale.ID

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneSale(sale)
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		if status != "" && sale.Status != status {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) VoidSale(_ context.Context, id string, reason string, actorID string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status == domain.SaleStatusVoided {
		return nil, store.ErrAlreadyVoided
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, store.ErrValidation
	}

	items := slices.Clone(sale.Items)
	slices.SortFunc(items, func(a, b domain.SaleItem) int {
		return cmpString(a.ProductID, b.ProductID)
	})
	for _, item := range items {
		if _, _, err := s.applyMovementLocked(domain.StockMovement{
			ProductID: item.ProductID,
			Type:      domain.MovementReturn,
			QtyDelta:  item.Qty,
			RefID:     sale.ID,
			RefType:   "sale_void",
			Note:      reason,
			ActorID:   actorID,
			CreatedAt: at,
		}); err != nil {
			return nil, err
		}
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason
	sale.VoidedBy = actorID
	voidedAt := at
	sale.VoidedAt = &voidedAt
	s.sales[id] = cloneSale(sale)

	voided := cloneSale(sale)
	return &voided, nil
}

// --- purchasing ---

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrValidation
	}
	if purchase.SupplierID != "" {
		if _, ok := s.suppliers[purchase.SupplierID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	for _, item := range purchase.Items {
		if item.Qty < 1 || item.UnitCostCents < 0 {
			return nil, store.ErrValidation
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	purchase.Status = domain.PurchaseStatusPending

	items := slices.Clone(purchase.Items)
	for i := range items {
		items[i].PurchaseID = purchase.ID
	}
	purchase.Items = items

	s.purchases[purchase.ID] = clonePurchase(purchase)

	created := clonePurchase(purchase)
	return &created, nil
}

func (s *Store) GetPurchaseByID(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := clonePurchase(purchase)
	return &found, nil
}

func (s *Store) ListPurchases(_ context.Context, status string, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		if status != "" && p.Status != status {
			continue
		}
		purchases = append(purchases, clonePurchase(p))
	}

	slices.SortFunc(purchases, func(a, b domain.Purchase) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	if limit > 0 && len(purchases) > limit {
		purchases = purchases[:limit]
	}
	return purchases, nil
}

func (s *Store) ReceivePurchase(_ context.Context, id string, actorID string, at time.Time) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if purchase.Status == domain.PurchaseStatusReceived {
		return nil, store.ErrAlreadyReceived
	}

	items := slices.Clone(purchase.Items)
	slices.SortFunc(items, func(a, b domain.PurchaseItem) int {
		return cmpString(a.ProductID, b.ProductID)
	})
	for _, item := range items {
		if _, _, err := s.applyMovementLocked(domain.StockMovement{
			ProductID: item.ProductID,
			Type:      domain.MovementPurchase,
			QtyDelta:  item.Qty,
			RefID:     purchase.ID,
			RefType:   "purchase",
			ActorID:   actorID,
			CreatedAt: at,
		}); err != nil {
			return nil, err
		}
	}

	purchase.Status = domain.PurchaseStatusReceived
	purchase.ReceivedBy = actorID
	receivedAt := at
	purchase.ReceivedAt = &receivedAt
	s.purchases[id] = clonePurchase(purchase)

	received := clonePurchase(purchase)
	return &received, nil
}

// --- reporting ---

func (s *Store) GetSalesSummary(_ context.Context, day time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day = day.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	summary := domain.SalesSummary{Date: day.Format("2006-01-02")}

	byPayment := make(map[string]*domain.PaymentBreakdown)
	hourly := make(map[int]*domain.HourlyPoint)
	daily := make(map[string]*domain.DailyPoint)
	weekStart := day.AddDate(0, 0, -6)

	for _, sale := range s.sales {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		created := sale.CreatedAt.UTC()

		if !created.Before(weekStart) && created.Before(next) {
			key := created.Format("2006-01-02")
			point, ok := daily[key]
			if !ok {
				point = &domain.DailyPoint{Date: key}
				daily[key] = point
			}
			point.Bills++
			point.AmountCents += sale.TotalCents
		}

		if created.Before(day) || !created.Before(next) {
			continue
		}

		summary.BillCount++
		summary.TotalSalesCents += sale.TotalCents
		for _, item := range sale.Items {
			summary.NetProfitCents += (item.UnitPriceCents - item.UnitCostCents) * item.Qty
		}
		for _, payment := range sale.Payments {
			entry, ok := byPayment[payment.Method]
			if !ok {
				entry = &domain.PaymentBreakdown{Method: payment.Method}
				byPayment[payment.Method] = entry
			}
			entry.Bills++
			entry.AmountCents += payment.AmountCents
		}
		hour := created.Hour()
		point, ok := hourly[hour]
		if !ok {
			point = &domain.HourlyPoint{Hour: hour}
			hourly[hour] = point
		}
		point.Bills++
		point.AmountCents += sale.TotalCents
	}

	for _, entry := range byPayment {
		summary.ByPayment = append(summary.ByPayment, *entry)
	}
	slices.SortFunc(summary.ByPayment, func(a, b domain.PaymentBreakdown) int {
		return cmpString(a.Method, b.Method)
	})

	for _, point := range hourly {
		summary.Hourly = append(summary.Hourly, *point)
	}
	slices.SortFunc(summary.Hourly, func(a, b domain.HourlyPoint) int {
		return a.Hour - b.Hour
	})

	for d := weekStart; d.Before(next); d = d.Add(24 * time.Hour) {
		key := d.Format("2006-01-02")
		if point, ok := daily[key]; ok {
			summary.Daily = append(summary.Daily, *point)
		} else {
			summary.Daily = append(summary.Daily, domain.DailyPoint{Date: key})
		}
	}

	return summary, nil
}

// --- alerts ---

func (s *Store) CreateAlert(_ context.Context, alert domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.ProductID == "" || alert.Type == "" {
		return store.ErrValidation
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	key := fmt.Sprintf("%s|%s|%s", alert.ProductID, alert.Type, alert.CreatedAt.UTC().Format("2006-01-02"))
	if _, exists := s.alertKeys[key]; exists {
		return nil
	}

	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	s.alertKeys[key] = struct{}{}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *Store) ListAlerts(_ context.Context, limit int) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Alert, 0, len(s.alerts))
	for i := len(s.alerts) - 1; i >= 0; i-- {
		result = append(result, s.alerts[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- audit + settings ---

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (*domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	setting, ok := s.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := setting
	return &found, nil
}

func (s *Store) SetSetting(_ context.Context, setting domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if setting.Key == "" {
		return store.ErrValidation
	}
	setting.UpdatedAt = time.Now().UTC()
	s.settings[setting.Key] = setting
	return nil
}

func (s *Store) ListSettings(_ context.Context) ([]domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make([]domain.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		settings = append(settings, setting)
	}
	slices.SortFunc(settings, func(a, b domain.Setting) int {
		return cmpString(a.Key, b.Key)
	})
	return settings, nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if _, exists := s.users[user.Username]; exists {
		return store.ErrValidation
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

// --- helpers ---

func cloneProduct(p domain.Product) domain.Product {
	cloned := p
	if p.Metadata != nil {
		cloned.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}

func cloneSale(sale domain.Sale) domain.Sale {
	cloned := sale
	cloned.Items = slices.Clone(sale.Items)
	cloned.Payments = slices.Clone(sale.Payments)
	if sale.VoidedAt != nil {
		at := *sale.VoidedAt
		cloned.VoidedAt = &at
	}
	return cloned
}

func clonePurchase(p domain.Purchase) domain.Purchase {
	cloned := p
	cloned.Items = slices.Clone(p.Items)
	if p.ReceivedAt != nil {
		at := *p.ReceivedAt
		cloned.ReceivedAt = &at
	}
	return cloned
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
