package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Sale is a committed customer order. Money fields are fixed at creation and
// never re-derived from the lines.
type Sale struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string              `gorm:"column:order_number;not null"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ActorID          uuid.UUID           `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole        string              `gorm:"column:actor_role;not null"`
	SubtotalCents    int64               `gorm:"column:subtotal_cents;not null"`
	VATCents         int64               `gorm:"column:vat_cents;not null;default:0"`
	DiscountCents    int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int64               `gorm:"column:total_cents;not null"`
	Status           enums.SaleStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	Notes            *string             `gorm:"column:notes"`
	CompletedAt      *time.Time          `gorm:"column:completed_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	RefundedAt       *time.Time          `gorm:"column:refunded_at"`
	Items            []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleItem snapshots the product price and VAT treatment at order time.
type SaleItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID         uuid.UUID       `gorm:"column:sale_id;type:uuid;not null"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceCents int64           `gorm:"column:unit_price_cents;not null"`
	VATRate        decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2);not null"`
	VATInclusive   bool            `gorm:"column:vat_inclusive;not null"`
	VATCents       int64           `gorm:"column:vat_cents;not null"`
	DiscountCents  int64           `gorm:"column:discount_cents;not null;default:0"`
	LineTotalCents int64           `gorm:"column:line_total_cents;not null"`
	IsService      bool            `gorm:"column:is_service;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
