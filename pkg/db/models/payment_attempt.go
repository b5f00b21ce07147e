package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// PaymentAttempt tracks one STK push from gateway acceptance to resolution.
type PaymentAttempt struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantRequestID string                     `gorm:"column:merchant_request_id;not null"`
	CheckoutRequestID string                     `gorm:"column:checkout_request_id;not null"`
	SaleID            *uuid.UUID                 `gorm:"column:sale_id;type:uuid"`
	Phone             string                     `gorm:"column:phone;not null"`
	AmountCents       int64                      `gorm:"column:amount_cents;not null"`
	AccountReference  string                     `gorm:"column:account_reference;not null"`
	Status            enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ResultCode        *int                       `gorm:"column:result_code"`
	ResultDesc        *string                    `gorm:"column:result_desc"`
	CallbackReceived  bool                       `gorm:"column:callback_received;not null;default:false"`
	TransactionID     *string                    `gorm:"column:transaction_id"`
	ResolvedVia       *enums.PaymentResolution   `gorm:"column:resolved_via;type:text"`
	ResolvedAt        *time.Time                 `gorm:"column:resolved_at"`
	LastPolledAt      *time.Time                 `gorm:"column:last_polled_at"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
