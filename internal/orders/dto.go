package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Actor is the authenticated user behind an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// LineInput is one cart line. UnitPriceCents falls back to the product's
// selling price (sales) or cost price (purchases) when nil.
type LineInput struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents *int64
	DiscountCents  int64
}

type SaleInput struct {
	CustomerID    uuid.UUID
	Actor         Actor
	PaymentMethod enums.PaymentMethod
	DiscountCents int64
	Notes         *string
	Lines         []LineInput
}

type PurchaseInput struct {
	SupplierID    uuid.UUID
	Actor         Actor
	PaymentMethod enums.PaymentMethod
	DiscountCents int64
	Notes         *string
	ExpectedAt    *time.Time
	Lines         []LineInput
}

// ReceiveLine applies Quantity more units to one purchase line.
type ReceiveLine struct {
	ItemID   uuid.UUID
	Quantity int
}

type ReceiveInput struct {
	PurchaseID uuid.UUID
	Actor      Actor
	Lines      []ReceiveLine
}

type SaleStatusInput struct {
	SaleID uuid.UUID
	Status enums.SaleStatus
	Reason string
	Actor  Actor
}

type PurchaseStatusInput struct {
	PurchaseID uuid.UUID
	Status     enums.PurchaseStatus
	Reason     string
	Actor      Actor
}

// DraftLine is a priced cart line ready to be persisted.
type DraftLine struct {
	Product        models.Product
	Quantity       int
	UnitCents      int64
	VATRate        decimal.Decimal
	VATInclusive   bool
	VATCents       int64
	DiscountCents  int64
	LineTotalCents int64
}

// Draft is the validated, priced order the builder hands to the coordinator.
type Draft struct {
	Lines         []DraftLine
	SubtotalCents int64
	VATCents      int64
	DiscountCents int64
	TotalCents    int64
}

// SettlementOutcome reports what CompleteSalePayment did to the sale.
type SettlementOutcome string

const (
	SettlementApplied        SettlementOutcome = "applied"
	SettlementAlreadyApplied SettlementOutcome = "already_applied"
	// SettlementSkipped means the sale was cancelled or refunded before the
	// payment resolved; it is left as is.
	SettlementSkipped SettlementOutcome = "skipped"
	// SettlementUnderpaid means the gateway confirmed less than the sale is
	// owed; the sale stays pending.
	SettlementUnderpaid SettlementOutcome = "underpaid"
)
