package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Purchase is a committed supplier order.
type Purchase struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string               `gorm:"column:order_number;not null"`
	SupplierID       uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null"`
	ActorID          uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole        string               `gorm:"column:actor_role;not null"`
	SubtotalCents    int64                `gorm:"column:subtotal_cents;not null"`
	VATCents         int64                `gorm:"column:vat_cents;not null;default:0"`
	DiscountCents    int64                `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int64                `gorm:"column:total_cents;not null"`
	Status           enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	PaymentReference *string              `gorm:"column:payment_reference"`
	Notes            *string              `gorm:"column:notes"`
	ExpectedAt       *time.Time           `gorm:"column:expected_at"`
	ReceivedAt       *time.Time           `gorm:"column:received_at"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	Items            []PurchaseItem       `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseItem tracks ordered and received quantities for one product.
// QuantityReceived never decreases and never exceeds Quantity.
type PurchaseItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseID       uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	QuantityReceived int             `gorm:"column:quantity_received;not null;default:0"`
	UnitCostCents    int64           `gorm:"column:unit_cost_cents;not null"`
	VATRate          decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2);not null"`
	VATCents         int64           `gorm:"column:vat_cents;not null"`
	DiscountCents    int64           `gorm:"column:discount_cents;not null;default:0"`
	LineTotalCents   int64           `gorm:"column:line_total_cents;not null"`
	IsService        bool            `gorm:"column:is_service;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// FullyReceived reports whether every ordered unit has arrived.
func (p PurchaseItem) FullyReceived() bool {
	return p.QuantityReceived >= p.Quantity
}
