// Package dbtest opens in-memory SQLite databases carrying the order engine
// schema for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
)

var schema = []string{
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		selling_price_cents INTEGER NOT NULL,
		cost_price_cents INTEGER NOT NULL DEFAULT 0,
		quantity_in_stock INTEGER NOT NULL DEFAULT 0 CHECK (quantity_in_stock >= 0),
		vat_rate NUMERIC NOT NULL DEFAULT 0,
		is_vat_inclusive BOOLEAN NOT NULL DEFAULT 0,
		is_service BOOLEAN NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_sequences (
		prefix TEXT NOT NULL,
		seq_date TEXT NOT NULL,
		last_value INTEGER NOT NULL,
		PRIMARY KEY (prefix, seq_date)
	)`,
	`CREATE TABLE sales (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		subtotal_cents INTEGER NOT NULL,
		vat_cents INTEGER NOT NULL DEFAULT 0,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		total_cents INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT NOT NULL,
		payment_reference TEXT,
		notes TEXT,
		completed_at DATETIME,
		cancelled_at DATETIME,
		refunded_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE sale_items (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		vat_rate NUMERIC NOT NULL,
		vat_inclusive BOOLEAN NOT NULL,
		vat_cents INTEGER NOT NULL,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		line_total_cents INTEGER NOT NULL,
		is_service BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE purchases (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		supplier_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		subtotal_cents INTEGER NOT NULL,
		vat_cents INTEGER NOT NULL DEFAULT 0,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		total_cents INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT NOT NULL,
		payment_reference TEXT,
		notes TEXT,
		expected_at DATETIME,
		received_at DATETIME,
		cancelled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE purchase_items (
		id TEXT PRIMARY KEY,
		purchase_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		quantity_received INTEGER NOT NULL DEFAULT 0 CHECK (quantity_received >= 0 AND quantity_received <= quantity),
		unit_cost_cents INTEGER NOT NULL,
		vat_rate NUMERIC NOT NULL,
		vat_cents INTEGER NOT NULL,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		line_total_cents INTEGER NOT NULL,
		is_service BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payment_attempts (
		id TEXT PRIMARY KEY,
		merchant_request_id TEXT NOT NULL,
		checkout_request_id TEXT NOT NULL UNIQUE,
		sale_id TEXT,
		phone TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		account_reference TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		result_code INTEGER,
		result_desc TEXT,
		callback_received BOOLEAN NOT NULL DEFAULT 0,
		transaction_id TEXT,
		resolved_via TEXT,
		resolved_at DATETIME,
		last_polled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_payment_attempts_pending_sale ON payment_attempts (sale_id) WHERE status = 'pending' AND sale_id IS NOT NULL`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with the full schema. The pool is
// limited to one connection so concurrent transactions serialize.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// ProductOption customizes a seeded product.
type ProductOption func(*models.Product)

// WithStock sets quantity_in_stock.
func WithStock(qty int) ProductOption {
	return func(p *models.Product) { p.QuantityInStock = qty }
}

// WithVAT sets the VAT rate and inclusive flag.
func WithVAT(rate string, inclusive bool) ProductOption {
	return func(p *models.Product) {
		p.VATRate = decimal.RequireFromString(rate)
		p.IsVATInclusive = inclusive
	}
}

// AsService marks the product as exempt from stock tracking.
func AsService() ProductOption {
	return func(p *models.Product) { p.IsService = true }
}

// Inactive marks the product as inactive.
func Inactive() ProductOption {
	return func(p *models.Product) { p.IsActive = false }
}

// SeedProduct inserts a product priced at priceCents with the given options.
func SeedProduct(t *testing.T, conn *gorm.DB, priceCents int64, opts ...ProductOption) models.Product {
	t.Helper()
	id := uuid.New()
	product := models.Product{
		ID:                id,
		Code:              "P-" + id.String()[:8],
		Name:              "Product " + id.String()[:8],
		SellingPriceCents: priceCents,
		CostPriceCents:    priceCents / 2,
		VATRate:           decimal.Zero,
		IsActive:          true,
	}
	for _, opt := range opts {
		opt(&product)
	}
	// Create writes the column default back into IsActive, so the requested
	// flag is captured first.
	active := product.IsActive
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if !active {
		if err := conn.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product: %v", err)
		}
		product.IsActive = false
	}
	return product
}

// SeedCustomer inserts an active customer.
func SeedCustomer(t *testing.T, conn *gorm.DB) models.Customer {
	t.Helper()
	customer := models.Customer{ID: uuid.New(), Name: "Walk-in", IsActive: true}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

// SeedSupplier inserts a supplier, optionally inactive.
func SeedSupplier(t *testing.T, conn *gorm.DB, active bool) models.Supplier {
	t.Helper()
	supplier := models.Supplier{ID: uuid.New(), Name: "Wholesaler", IsActive: true}
	if err := conn.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	if !active {
		if err := conn.Model(&models.Supplier{}).Where("id = ?", supplier.ID).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate supplier: %v", err)
		}
		supplier.IsActive = false
	}
	return supplier
}

// StockOf reads the current quantity_in_stock of a product.
func StockOf(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.Select("quantity_in_stock").Where("id = ?", productID).Take(&product).Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return product.QuantityInStock
}

// FixedClock returns a clock pinned to t.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
