package domain

import "time"

// Actor is the authenticated user attached to a request context. Every core
// operation receives the actor explicitly; there is no ambient current-user
// state anywhere in the system.
type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

type Product struct {
	ID                string            `json:"id"`
	Code              string            `json:"code"`
	Barcode           string            `json:"barcode,omitempty"`
	Name              string            `json:"name"`
	CategoryID        string            `json:"category_id,omitempty"`
	Brand             string            `json:"brand,omitempty"`
	Unit              string            `json:"unit,omitempty"`
	CostPriceCents    int64             `json:"cost_price_cents"`
	SellingPriceCents int64             `json:"selling_price_cents"`
	ReorderLevel      int64             `json:"reorder_level"`
	SupplierID        string            `json:"supplier_id,omitempty"`
	TaxRateBps        int64             `json:"tax_rate_bps"`
	Status            string            `json:"status"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Stock is the materialized current quantity for one product. It is mutated
// only through the ledger's movement path and can always be rebuilt from the
// movement history.
type Stock struct {
	ProductID   string    `json:"product_id"`
	CurrentQty  int64     `json:"current_qty"`
	LastUpdated time.Time `json:"last_updated"`
}

const (
	MovementSale       = "sale"
	MovementPurchase   = "purchase"
	MovementAdjustment = "adjustment"
	MovementReturn     = "return"
	MovementCorrection = "correction"
)

// StockMovement is one signed quantity change. Rows are append-only; they are
// never updated or deleted.
type StockMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Type      string    `json:"type"`
	QtyDelta  int64     `json:"qty_delta"`
	RefID     string    `json:"ref_id,omitempty"`
	RefType   string    `json:"ref_type,omitempty"`
	Note      string    `json:"note,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReconcileResult struct {
	ProductID string `json:"product_id"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
	Drift     int64  `json:"drift"`
}

type LowStockItem struct {
	ProductID    string `json:"product_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	CurrentQty   int64  `json:"current_qty"`
	ReorderLevel int64  `json:"reorder_level"`
}

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
)

type Sale struct {
	ID            string     `json:"id"`
	BillNo        string     `json:"bill_no"`
	CashierID     string     `json:"cashier_id"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TaxCents      int64      `json:"tax_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	Status        string     `json:"status"`
	VoidReason    string     `json:"void_reason,omitempty"`
	VoidedBy      string     `json:"voided_by,omitempty"`
	VoidedAt      *time.Time `json:"voided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []SaleItem `json:"items"`
	Payments      []Payment  `json:"payments"`
}

// SaleItem captures price, cost and tax-rate snapshots at sale time so later
// catalog edits never change historical totals or profit.
type SaleItem struct {
	SaleID         string `json:"sale_id,omitempty"`
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	UnitCostCents  int64  `json:"unit_cost_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	TaxRateBps     int64  `json:"tax_rate_bps"`
	TaxCents       int64  `json:"tax_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type Payment struct {
	SaleID      string `json:"sale_id,omitempty"`
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference,omitempty"`
}

const (
	PurchaseStatusPending  = "pending"
	PurchaseStatusReceived = "received"
)

type Purchase struct {
	ID         string         `json:"id"`
	RefNo      string         `json:"ref_no"`
	SupplierID string         `json:"supplier_id"`
	Status     string         `json:"status"`
	TotalCents int64          `json:"total_cents"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	ReceivedBy string         `json:"received_by,omitempty"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
	Items      []PurchaseItem `json:"items"`
}

type PurchaseItem struct {
	PurchaseID     string `json:"purchase_id,omitempty"`
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitCostCents  int64  `json:"unit_cost_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

const AlertTypeLowStock = "low_stock"

type Alert struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- request / response shapes consumed by httpapi ---

type ApplyMovementRequest struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
	QtyDelta  int64  `json:"qty_delta"`
	Note      string `json:"note,omitempty"`
}

type ApplyMovementResponse struct {
	ProductID  string `json:"product_id"`
	MovementID string `json:"movement_id"`
	NewQty     int64  `json:"new_qty"`
}

type SaleLineRequest struct {
	ProductID      string `json:"product_id"`
	Qty            int64  `json:"qty"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
	DiscountCents  int64  `json:"discount_cents,omitempty"`
}

type PaymentRequest struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference,omitempty"`
}

type SaleCreateRequest struct {
	BillNo   string            `json:"bill_no,omitempty"`
	Items    []SaleLineRequest `json:"items"`
	Payments []PaymentRequest  `json:"payments"`
}

type SaleCreateResponse struct {
	SaleID        string `json:"sale_id"`
	BillNo        string `json:"bill_no"`
	SubtotalCents int64  `json:"subtotal_cents"`
	TaxCents      int64  `json:"tax_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason"`
}

type VoidSaleResponse struct {
	SaleID   string `json:"sale_id"`
	Status   string `json:"status"`
	VoidedAt string `json:"voided_at"`
}

type PurchaseLineRequest struct {
	ProductID     string `json:"product_id"`
	Qty           int64  `json:"qty"`
	UnitCostCents int64  `json:"unit_cost_cents"`
}

type PurchaseCreateRequest struct {
	SupplierID string                `json:"supplier_id"`
	RefNo      string                `json:"ref_no,omitempty"`
	Items      []PurchaseLineRequest `json:"items"`
}

type ProductCreateRequest struct {
	Name              string            `json:"name"`
	Barcode           string            `json:"barcode,omitempty"`
	CategoryID        string            `json:"category_id,omitempty"`
	Brand             string            `json:"brand,omitempty"`
	Unit              string            `json:"unit,omitempty"`
	CostPriceCents    int64             `json:"cost_price_cents"`
	SellingPriceCents int64             `json:"selling_price_cents"`
	ReorderLevel      int64             `json:"reorder_level"`
	SupplierID        string            `json:"supplier_id,omitempty"`
	TaxRateBps        int64             `json:"tax_rate_bps"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type ProductUpdateRequest struct {
	Name              *string            `json:"name,omitempty"`
	Barcode           *string            `json:"barcode,omitempty"`
	CategoryID        *string            `json:"category_id,omitempty"`
	Brand             *string            `json:"brand,omitempty"`
	Unit              *string            `json:"unit,omitempty"`
	CostPriceCents    *int64             `json:"cost_price_cents,omitempty"`
	SellingPriceCents *int64             `json:"selling_price_cents,omitempty"`
	ReorderLevel      *int64             `json:"reorder_level,omitempty"`
	SupplierID        *string            `json:"supplier_id,omitempty"`
	TaxRateBps        *int64             `json:"tax_rate_bps,omitempty"`
	Metadata          *map[string]string `json:"metadata,omitempty"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// --- reporting shapes ---

type PaymentBreakdown struct {
	Method      string `json:"method"`
	Bills       int64  `json:"bills"`
	AmountCents int64  `json:"amount_cents"`
}

type HourlyPoint struct {
	Hour        int   `json:"hour"`
	Bills       int64 `json:"bills"`
	AmountCents int64 `json:"amount_cents"`
}

type DailyPoint struct {
	Date        string `json:"date"`
	Bills       int64  `json:"bills"`
	AmountCents int64  `json:"amount_cents"`
}

// SalesSummary is the raw read-side aggregate a store produces for one day.
// Profit comes from the per-line cost snapshot, never the live product cost.
type SalesSummary struct {
	Date            string             `json:"date"`
	TotalSalesCents int64              `json:"total_sales_cents"`
	BillCount       int64              `json:"bill_count"`
	NetProfitCents  int64              `json:"net_profit_cents"`
	ByPayment       []PaymentBreakdown `json:"by_payment"`
	Hourly          []HourlyPoint      `json:"hourly"`
	Daily           []DailyPoint       `json:"daily"`
}

type DashboardSummary struct {
	Date            string             `json:"date"`
	TotalSalesCents int64              `json:"total_sales_cents"`
	BillCount       int64              `json:"bill_count"`
	AvgBillCents    int64              `json:"avg_bill_cents"`
	NetProfitCents  int64              `json:"net_profit_cents"`
	ByPayment       []PaymentBreakdown `json:"by_payment"`
	LowStock        []LowStockItem     `json:"low_stock"`
	Hourly          []HourlyPoint      `json:"hourly"`
	Daily           []DailyPoint       `json:"daily"`
	BusiestHour     int                `json:"busiest_hour"`
	GeneratedAt     string             `json:"generated_at"`
	FromCache       bool               `json:"from_cache,omitempty"`
	LatencyMS       int64              `json:"latency_ms"`
}
