package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog record orders reference. Stock is mutated only
// through the stock ledger.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string          `gorm:"column:code;not null"`
	Name              string          `gorm:"column:name;not null"`
	SellingPriceCents int64           `gorm:"column:selling_price_cents;not null"`
	CostPriceCents    int64           `gorm:"column:cost_price_cents;not null;default:0"`
	QuantityInStock   int             `gorm:"column:quantity_in_stock;not null;default:0"`
	VATRate           decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2);not null;default:0"`
	IsVATInclusive    bool            `gorm:"column:is_vat_inclusive;not null;default:false"`
	IsService         bool            `gorm:"column:is_service;not null;default:false"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
