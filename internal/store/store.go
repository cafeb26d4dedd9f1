package store

import (
	"context"
	"errors"
	"time"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentMismatch   = errors.New("payment does not match total")
	ErrAlreadyReceived   = errors.New("purchase already received")
	ErrAlreadyVoided     = errors.New("sale already voided")
	ErrDuplicateBill     = errors.New("duplicate bill number")
)

// Repository is the persistence boundary. Both implementations (postgres and
// memory) guarantee the same atomicity: a movement and its stock update land
// together or not at all, and a multi-line sale, void or purchase receipt is
// all-or-nothing across every line.
type Repository interface {
	// catalog
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) error
	CountProductsWithCodePrefix(ctx context.Context, prefix string) (int64, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	DeactivateSupplier(ctx context.Context, id string) error

	// stock ledger
	ApplyMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, int64, error)
	GetStock(ctx context.Context, productID string) (*domain.Stock, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)
	ListLowStock(ctx context.Context, limit int) ([]domain.LowStockItem, error)
	ReconcileStock(ctx context.Context, productID string) (domain.ReconcileResult, error)

	// sales
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error)
	VoidSale(ctx context.Context, id string, reason string, actorID string, at time.Time) (*domain.Sale, error)

	// purchasing
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	GetPurchaseByID(ctx context.Context, id string) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error)
	ReceivePurchase(ctx context.Context, id string, actorID string, at time.Time) (*domain.Purchase, error)

	// reporting
	GetSalesSummary(ctx context.Context, day time.Time) (domain.SalesSummary, error)

	// alerts (deduplicated per product, type and calendar day)
	CreateAlert(ctx context.Context, alert domain.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]domain.Alert, error)

	// audit + settings
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	SetSetting(ctx context.Context, setting domain.Setting) error
	ListSettings(ctx context.Context) ([]domain.Setting, error)

	// users
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
