package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/thusharu-arosh-gunapala/POS-System/internal/domain"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/store"
	"github.com/thusharu-arosh-gunapala/POS-System/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema. Statements are additive and idempotent so
// running them on every start is safe.
func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			contact_person TEXT,
			phone TEXT,
			email TEXT,
			address TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			barcode TEXT UNIQUE,
			name TEXT NOT NULL,
			category_id TEXT REFERENCES categories(id),
			brand TEXT,
			unit TEXT,
			cost_price_cents BIGINT NOT NULL DEFAULT 0,
			selling_price_cents BIGINT NOT NULL,
			reorder_level BIGINT NOT NULL DEFAULT 0,
			supplier_id TEXT REFERENCES suppliers(id),
			tax_rate_bps BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS stock (
			product_id TEXT PRIMARY KEY REFERENCES products(id),
			current_qty BIGINT NOT NULL DEFAULT 0 CHECK (current_qty >= 0),
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id),
			type TEXT NOT NULL,
			qty_delta BIGINT NOT NULL,
			ref_id TEXT,
			ref_type TEXT,
			note TEXT,
			actor_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_product
			ON stock_movements (product_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			bill_no TEXT NOT NULL UNIQUE,
			cashier_id TEXT,
			subtotal_cents BIGINT NOT NULL,
			tax_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			void_reason TEXT,
			voided_by TEXT,
			voided_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			sale_id TEXT NOT NULL REFERENCES sales(id),
			product_id TEXT NOT NULL REFERENCES products(id),
			qty BIGINT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			unit_cost_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			tax_rate_bps BIGINT NOT NULL DEFAULT 0,
			tax_cents BIGINT NOT NULL DEFAULT 0,
			line_total_cents BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			sale_id TEXT NOT NULL REFERENCES sales(id),
			method TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			reference TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			ref_no TEXT,
			supplier_id TEXT REFERENCES suppliers(id),
			status TEXT NOT NULL DEFAULT 'pending',
			total_cents BIGINT NOT NULL,
			created_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			received_by TEXT,
			received_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
			purchase_id TEXT NOT NULL REFERENCES purchases(id),
			product_id TEXT NOT NULL REFERENCES products(id),
			qty BIGINT NOT NULL,
			unit_cost_cents BIGINT NOT NULL,
			line_total_cents BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id),
			type TEXT NOT NULL,
			message TEXT,
			sent BOOLEAN NOT NULL DEFAULT false,
			alert_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (product_id, type, alert_date)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_id TEXT,
			actor_role TEXT,
			action TEXT NOT NULL,
			entity_type TEXT,
			entity_id TEXT,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- catalog ---

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `
		SELECT id, code, COALESCE(barcode,''), name, COALESCE(category_id,''), COALESCE(brand,''),
		       COALESCE(unit,''), cost_price_cents, selling_price_cents, reorder_level,
		       COALESCE(supplier_id,''), tax_rate_bps, status, metadata, created_at, updated_at
		FROM products
	`
	if !includeInactive {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Code == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.ReorderLevel < 0 {
		return nil, store.ErrValidation
	}

	metadata, err := marshalMetadata(product.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	product.Status = domain.ProductStatusActive
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (
			id, code, barcode, name, category_id, brand, unit,
			cost_price_cents, selling_price_cents, reorder_level,
			supplier_id, tax_rate_bps, status, metadata, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
	`, product.ID, product.Code, nullIfEmpty(product.Barcode), product.Name,
		nullIfEmpty(product.CategoryID), nullIfEmpty(product.Brand), nullIfEmpty(product.Unit),
		product.CostPriceCents, product.SellingPriceCents, product.ReorderLevel,
		nullIfEmpty(product.SupplierID), product.TaxRateBps, product.Status, metadata)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	// The stock row is born with the product, at zero.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock (product_id, current_qty, last_updated)
		VALUES ($1, 0, now())
		ON CONFLICT (product_id) DO NOTHING
	`, product.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, COALESCE(barcode,''), name, COALESCE(category_id,''), COALESCE(brand,''),
		       COALESCE(unit,''), cost_price_cents, selling_price_cents, reorder_level,
		       COALESCE(supplier_id,''), tax_rate_bps, status, metadata, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, COALESCE(barcode,''), name, COALESCE(category_id,''), COALESCE(brand,''),
		       COALESCE(unit,''), cost_price_cents, selling_price_cents, reorder_level,
		       COALESCE(supplier_id,''), tax_rate_bps, status, metadata, created_at, updated_at
		FROM products
		WHERE id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.SellingPriceCents < 1 || product.CostPriceCents < 0 || product.ReorderLevel < 0 {
		return nil, store.ErrValidation
	}

	metadata, err := marshalMetadata(product.Metadata)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, category_id = $4, brand = $5, unit = $6,
		    cost_price_cents = $7, selling_price_cents = $8, reorder_level = $9,
		    supplier_id = $10, tax_rate_bps = $11, status = $12, metadata = $13, updated_at = now()
		WHERE id = $1
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, nullIfEmpty(product.CategoryID),
		nullIfEmpty(product.Brand), nullIfEmpty(product.Unit), product.CostPriceCents,
		product.SellingPriceCents, product.ReorderLevel, nullIfEmpty(product.SupplierID),
		product.TaxRateBps, product.Status, metadata)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeactivateProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET status = 'inactive', updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountProductsWithCodePrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE code LIKE $1 || '%'
	`, prefix).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" || category.Name == "" {
		return nil, store.ErrValidation
	}
	category.Status = domain.ProductStatusActive
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, status, created_at)
		VALUES ($1,$2,$3,now())
	`, category.ID, category.Name, category.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, created_at FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.ID == "" || supplier.Name == "" {
		return nil, store.ErrValidation
	}
	supplier.Status = domain.ProductStatusActive
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, phone, email, address, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, supplier.ID, supplier.Name, nullIfEmpty(supplier.ContactPerson), nullIfEmpty(supplier.Phone),
		nullIfEmpty(supplier.Email), nullIfEmpty(supplier.Address), supplier.Status)
	if err != nil {
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(contact_person,''), COALESCE(phone,''), COALESCE(email,''),
		       COALESCE(address,''), status, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Phone, &sup.Email, &sup.Address, &sup.Status, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) DeactivateSupplier(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE suppliers SET status = 'inactive' WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- stock ledger ---

func (s *Store) ApplyMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, int64, error) {
	if movement.ProductID == "" || movement.QtyDelta == 0 {
		return nil, 0, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	applied, newQty, err := applyMovementTx(ctx, tx, movement)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return applied, newQty, nil
}

// applyMovementTx is the single write path for stock. It locks the stock row,
// validates the resulting quantity, then writes the movement and the updated
// quantity inside the caller's transaction.
func applyMovementTx(ctx context.Context, tx *sql.Tx, movement domain.StockMovement) (*domain.StockMovement, int64, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, movement.ProductID).Scan(&exists); err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, store.ErrNotFound
	}

	var current int64
	err := tx.QueryRowContext(ctx, `
		SELECT current_qty FROM stock WHERE product_id = $1 FOR UPDATE
	`, movement.ProductID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		// Insert-on-first-use keeps older rows created before the stock table
		// existed usable.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock (product_id, current_qty, last_updated)
			VALUES ($1, 0, now())
			ON CONFLICT (product_id) DO NOTHING
		`, movement.ProductID); err != nil {
			return nil, 0, err
		}
		err = tx.QueryRowContext(ctx, `
			SELECT current_qty FROM stock WHERE product_id = $1 FOR UPDATE
		`, movement.ProductID).Scan(&current)
	}
	if err != nil {
		return nil, 0, err
	}

	next := current + movement.QtyDelta
	if next < 0 {
		return nil, 0, store.ErrInsufficientStock
	}

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, qty_delta, ref_id, ref_type, note, actor_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, movement.ID, movement.ProductID, movement.Type, movement.QtyDelta,
		nullIfEmpty(movement.RefID), nullIfEmpty(movement.RefType), nullIfEmpty(movement.Note),
		nullIfEmpty(movement.ActorID), movement.CreatedAt); err != nil {
		return nil, 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE stock SET current_qty = $2, last_updated = $3 WHERE product_id = $1
	`, movement.ProductID, next, movement.CreatedAt); err != nil {
		return nil, 0, err
	}

	applied := movement
	return &applied, next, nil
}

func (s *Store) GetStock(ctx context.Context, productID string) (*domain.Stock, error) {
	var stock domain.Stock
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, current_qty, last_updated FROM stock WHERE product_id = $1
	`, productID).Scan(&stock.ProductID, &stock.CurrentQty, &stock.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 200
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, productID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, qty_delta, COALESCE(ref_id,''), COALESCE(ref_type,''),
		       COALESCE(note,''), COALESCE(actor_id,''), created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.QtyDelta, &m.RefID, &m.RefType, &m.Note, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) ListLowStock(ctx context.Context, limit int) ([]domain.LowStockItem, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.code, p.name, st.current_qty, p.reorder_level
		FROM products p
		JOIN stock st ON st.product_id = p.id
		WHERE p.status = 'active' AND st.current_qty <= p.reorder_level
		ORDER BY st.current_qty ASC, p.name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LowStockItem, 0, limit)
	for rows.Next() {
		var item domain.LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Code, &item.Name, &item.CurrentQty, &item.ReorderLevel); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ReconcileStock(ctx context.Context, productID string) (domain.ReconcileResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, productID).Scan(&exists); err != nil {
		return domain.ReconcileResult{}, err
	}
	if !exists {
		return domain.ReconcileResult{}, store.ErrNotFound
	}

	var before int64
	err = tx.QueryRowContext(ctx, `
		SELECT current_qty FROM stock WHERE product_id = $1 FOR UPDATE
	`, productID).Scan(&before)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.ReconcileResult{}, err
	}

	var after int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(qty_delta), 0) FROM stock_movements WHERE product_id = $1
	`, productID).Scan(&after); err != nil {
		return domain.ReconcileResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock (product_id, current_qty, last_updated)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id) DO UPDATE SET current_qty = EXCLUDED.current_qty, last_updated = now()
	`, productID, after); err != nil {
		return domain.ReconcileResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.ReconcileResult{}, err
	}

	return domain.ReconcileResult{
		ProductID: productID,
		Before:    before,
		After:     after,
		Drift:     after - before,
	}, nil
}

// --- sales ---

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.BillNo == "" || len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	paid := int64(0)
	for _, p := range sale.Payments {
		paid += p.AmountCents
	}
	if paid != sale.TotalCents {
		return nil, store.ErrPaymentMismatch
	}

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, bill_no, cashier_id, subtotal_cents, tax_cents, discount_cents,
			total_cents, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.BillNo, nullIfEmpty(sale.CashierID), sale.SubtotalCents, sale.TaxCents,
		sale.DiscountCents, sale.TotalCents, sale.Status, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateBill
		}
		return nil, err
	}

	// Movements run in ascending product-id order so two sales touching the
	// same products always lock stock rows in the same sequence.
	items := slices.Clone(sale.Items)
	slices.SortFunc(items, func(a, b domain.SaleItem) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		default:
			return 0
		}
	})

	for i := range items {
		items[i].SaleID = sale.ID
		if items[i].Qty < 1 {
			return nil, store.ErrValidation
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				sale_id, product_id, qty, unit_price_cents, unit_cost_cents,
				discount_cents, tax_rate_bps, tax_cents, line_total_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, sale.ID, items[i].ProductID, items[i].Qty, items[i].UnitPriceCents, items[i].UnitCostCents,
			items[i].DiscountCents, items[i].TaxRateBps, items[i].TaxCents, items[i].LineTotalCents)
		if err != nil {
			return nil, err
		}

		if _, _, err := applyMovementTx(ctx, tx, domain.StockMovement{
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
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (sale_id, method, amount_cents, reference)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, payments[i].Method, payments[i].AmountCents, nullIfEmpty(payments[i].Reference))
		if err != nil {
			return nil, err
		}
	}
	sale.Payments = payments

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var voidedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, bill_no, COALESCE(cashier_id,''), subtotal_cents, tax_cents, discount_cents,
		       total_cents, status, COALESCE(void_reason,''), COALESCE(voided_by,''), voided_at, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.BillNo, &sale.CashierID, &sale.SubtotalCents, &sale.TaxCents,
		&sale.DiscountCents, &sale.TotalCents, &sale.Status, &sale.VoidReason, &sale.VoidedBy,
		&voidedAt, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if voidedAt.Valid {
		at := voidedAt.Time
		sale.VoidedAt = &at
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, qty, unit_price_cents, unit_cost_cents,
		       discount_cents, tax_rate_bps, tax_cents, line_total_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.SaleID, &item.ProductID, &item.Qty, &item.UnitPriceCents,
			&item.UnitCostCents, &item.DiscountCents, &item.TaxRateBps, &item.TaxCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, method, amount_cents, COALESCE(reference,'')
		FROM payments
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var payment domain.Payment
		if err := paymentRows.Scan(&payment.SaleID, &payment.Method, &payment.AmountCents, &payment.Reference); err != nil {
			return nil, err
		}
		sale.Payments = append(sale.Payments, payment)
	}
	if err := paymentRows.Err(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	query := `
		SELECT id, bill_no, COALESCE(cashier_id,''), subtotal_cents, tax_cents, discount_cents,
		       total_cents, status, COALESCE(void_reason,''), COALESCE(voided_by,''), voided_at, created_at
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
	`
	args := []any{from, to}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var voidedAt sql.NullTime
		if err := rows.Scan(&sale.ID, &sale.BillNo, &sale.CashierID, &sale.SubtotalCents, &sale.TaxCents,
			&sale.DiscountCents, &sale.TotalCents, &sale.Status, &sale.VoidReason, &sale.VoidedBy,
			&voidedAt, &sale.CreatedAt); err != nil {
			return nil, err
		}
		if voidedAt.Valid {
			at := voidedAt.Time
			sale.VoidedAt = &at
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) VoidSale(ctx context.Context, id string, reason string, actorID string, at time.Time) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM sales WHERE id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.SaleStatusVoided {
		return nil, store.ErrAlreadyVoided
	}
	if status != domain.SaleStatusCompleted {
		return nil, store.ErrValidation
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty FROM sale_items WHERE sale_id = $1 ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	type voidLine struct {
		productID string
		qty       int64
	}
	lines := make([]voidLine, 0, 8)
	for itemRows.Next() {
		var line voidLine
		if err := itemRows.Scan(&line.productID, &line.qty); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, line := range lines {
		if _, _, err := applyMovementTx(ctx, tx, domain.StockMovement{
			ProductID: line.productID,
			Type:      domain.MovementReturn,
			QtyDelta:  line.qty,
			RefID:     id,
			RefType:   "sale_void",
			Note:      reason,
			ActorID:   actorID,
			CreatedAt: at,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET status = 'voided', void_reason = $2, voided_by = $3, voided_at = $4
		WHERE id = $1
	`, id, reason, nullIfEmpty(actorID), at); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, id)
}

// --- purchasing ---

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.ID == "" || len(purchase.Items) == 0 {
		return nil, store.ErrValidation
	}
	for _, item := range purchase.Items {
		if item.Qty < 1 || item.UnitCostCents < 0 {
			return nil, store.ErrValidation
		}
	}

	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	purchase.Status = domain.PurchaseStatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, ref_no, supplier_id, status, total_cents, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, purchase.ID, nullIfEmpty(purchase.RefNo), nullIfEmpty(purchase.SupplierID), purchase.Status,
		purchase.TotalCents, nullIfEmpty(purchase.CreatedBy), purchase.CreatedAt)
	if err != nil {
		return nil, err
	}

	items := slices.Clone(purchase.Items)
	for i := range items {
		items[i].PurchaseID = purchase.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, qty, unit_cost_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, purchase.ID, items[i].ProductID, items[i].Qty, items[i].UnitCostCents, items[i].LineTotalCents)
		if err != nil {
			return nil, err
		}
	}
	purchase.Items = items

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (s *Store) GetPurchaseByID(ctx context.Context, id string) (*domain.Purchase, error) {
	var purchase domain.Purchase
	var receivedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(ref_no,''), COALESCE(supplier_id,''), status, total_cents,
		       COALESCE(created_by,''), created_at, COALESCE(received_by,''), received_at
		FROM purchases
		WHERE id = $1
	`, id).Scan(&purchase.ID, &purchase.RefNo, &purchase.SupplierID, &purchase.Status,
		&purchase.TotalCents, &purchase.CreatedBy, &purchase.CreatedAt, &purchase.ReceivedBy, &receivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if receivedAt.Valid {
		at := receivedAt.Time
		purchase.ReceivedAt = &at
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT purchase_id, product_id, qty, unit_cost_cents, line_total_cents
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(&item.PurchaseID, &item.ProductID, &item.Qty, &item.UnitCostCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		purchase.Items = append(purchase.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (s *Store) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 100
	}

	query := `
		SELECT id, COALESCE(ref_no,''), COALESCE(supplier_id,''), status, total_cents,
		       COALESCE(created_by,''), created_at, COALESCE(received_by,''), received_at
		FROM purchases
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, limit)
	for rows.Next() {
		var purchase domain.Purchase
		var receivedAt sql.NullTime
		if err := rows.Scan(&purchase.ID, &purchase.RefNo, &purchase.SupplierID, &purchase.Status,
			&purchase.TotalCents, &purchase.CreatedBy, &purchase.CreatedAt, &purchase.ReceivedBy, &receivedAt); err != nil {
			return nil, err
		}
		if receivedAt.Valid {
			at := receivedAt.Time
			purchase.ReceivedAt = &at
		}
		purchases = append(purchases, purchase)
	}
	return purchases, rows.Err()
}

func (s *Store) ReceivePurchase(ctx context.Context, id string, actorID string, at time.Time) (*domain.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM purchases WHERE id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.PurchaseStatusReceived {
		return nil, store.ErrAlreadyReceived
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty FROM purchase_items WHERE purchase_id = $1 ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	type receiveLine struct {
		productID string
		qty       int64
	}
	lines := make([]receiveLine, 0, 8)
	for rows.Next() {
		var line receiveLine
		if err := rows.Scan(&line.productID, &line.qty); err != nil {
			_ = rows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, line := range lines {
		if _, _, err := applyMovementTx(ctx, tx, domain.StockMovement{
			ProductID: line.productID,
			Type:      domain.MovementPurchase,
			QtyDelta:  line.qty,
			RefID:     id,
			RefType:   "purchase",
			ActorID:   actorID,
			CreatedAt: at,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE purchases SET status = 'received', received_by = $2, received_at = $3 WHERE id = $1
	`, id, nullIfEmpty(actorID), at); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetPurchaseByID(ctx, id)
}

// --- reporting ---

func (s *Store) GetSalesSummary(ctx context.Context, day time.Time) (domain.SalesSummary, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)
	weekStart := day.AddDate(0, 0, -6)

	summary := domain.SalesSummary{Date: day.Format("2006-01-02")}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
	`, day, next).Scan(&summary.BillCount, &summary.TotalSalesCents)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	// Profit from the cost snapshot on each line, so later cost edits never
	// rewrite history.
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM((si.unit_price_cents - si.unit_cost_cents) * si.qty), 0)
		FROM sale_items si
		JOIN sales sa ON sa.id = si.sale_id
		WHERE sa.status = 'completed' AND sa.created_at >= $1 AND sa.created_at < $2
	`, day, next).Scan(&summary.NetProfitCents)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT p.method, COUNT(*), COALESCE(SUM(p.amount_cents), 0)
		FROM payments p
		JOIN sales sa ON sa.id = p.sale_id
		WHERE sa.status = 'completed' AND sa.created_at >= $1 AND sa.created_at < $2
		GROUP BY p.method
		ORDER BY p.method
	`, day, next)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	for paymentRows.Next() {
		var entry domain.PaymentBreakdown
		if err := paymentRows.Scan(&entry.Method, &entry.Bills, &entry.AmountCents); err != nil {
			_ = paymentRows.Close()
			return domain.SalesSummary{}, err
		}
		summary.ByPayment = append(summary.ByPayment, entry)
	}
	if err := paymentRows.Err(); err != nil {
		_ = paymentRows.Close()
		return domain.SalesSummary{}, err
	}
	_ = paymentRows.Close()

	hourRows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')::int, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1
	`, day, next)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	for hourRows.Next() {
		var point domain.HourlyPoint
		if err := hourRows.Scan(&point.Hour, &point.Bills, &point.AmountCents); err != nil {
			_ = hourRows.Close()
			return domain.SalesSummary{}, err
		}
		summary.Hourly = append(summary.Hourly, point)
	}
	if err := hourRows.Err(); err != nil {
		_ = hourRows.Close()
		return domain.SalesSummary{}, err
	}
	_ = hourRows.Close()

	dayRows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1
	`, weekStart, next)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	byDay := make(map[string]domain.DailyPoint, 7)
	for dayRows.Next() {
		var point domain.DailyPoint
		if err := dayRows.Scan(&point.Date, &point.Bills, &point.AmountCents); err != nil {
			_ = dayRows.Close()
			return domain.SalesSummary{}, err
		}
		byDay[point.Date] = point
	}
	if err := dayRows.Err(); err != nil {
		_ = dayRows.Close()
		return domain.SalesSummary{}, err
	}
	_ = dayRows.Close()

	for d := weekStart; d.Before(next); d = d.Add(24 * time.Hour) {
		key := d.Format("2006-01-02")
		if point, ok := byDay[key]; ok {
			summary.Daily = append(summary.Daily, point)
		} else {
			summary.Daily = append(summary.Daily, domain.DailyPoint{Date: key})
		}
	}

	return summary, nil
}

// --- alerts ---

func (s *Store) CreateAlert(ctx context.Context, alert domain.Alert) error {
	if alert.ProductID == "" || alert.Type == "" {
		return store.ErrValidation
	}
	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	// The unique (product_id, type, alert_date) constraint dedups repeats
	// within a day.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, product_id, type, message, sent, alert_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (product_id, type, alert_date) DO NOTHING
	`, alert.ID, alert.ProductID, alert.Type, nullIfEmpty(alert.Message), alert.Sent,
		alert.CreatedAt.Format("2006-01-02"), alert.CreatedAt)
	return err
}

func (s *Store) ListAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, COALESCE(message,''), sent, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0, limit)
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Type, &a.Message, &a.Sent, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// --- audit + settings ---

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, nullIfEmpty(entry.ActorID), nullIfEmpty(entry.ActorRole), entry.Action,
		nullIfEmpty(entry.EntityType), nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(actor_id,''), COALESCE(actor_role,''), action,
		       COALESCE(entity_type,''), COALESCE(entity_id,''), COALESCE(detail,''), created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, COALESCE(description,''), updated_at FROM settings WHERE key = $1
	`, key).Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &setting, nil
}

func (s *Store) SetSetting(ctx context.Context, setting domain.Setting) error {
	if setting.Key == "" {
		return store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = now()
	`, setting.Key, setting.Value, nullIfEmpty(setting.Description))
	return err
}

func (s *Store) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, COALESCE(description,''), updated_at FROM settings ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make([]domain.Setting, 0, 32)
	for rows.Next() {
		var setting domain.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrValidation
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var metadata []byte
	err := row.Scan(&p.ID, &p.Code, &p.Barcode, &p.Name, &p.CategoryID, &p.Brand, &p.Unit,
		&p.CostPriceCents, &p.SellingPriceCents, &p.ReorderLevel, &p.SupplierID, &p.TaxRateBps,
		&p.Status, &metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return domain.Product{}, err
		}
	}
	return p, nil
}

func marshalMetadata(metadata map[string]string) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

