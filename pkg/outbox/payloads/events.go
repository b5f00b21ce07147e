package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// OrderLine is the line summary carried by creation events.
type OrderLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	VATCents       int64     `json:"vat_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// SaleCreatedEvent is emitted when a sale commits.
type SaleCreatedEvent struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Status        enums.SaleStatus    `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	SubtotalCents int64               `json:"subtotal_cents"`
	VATCents      int64               `json:"vat_cents"`
	DiscountCents int64               `json:"discount_cents"`
	TotalCents    int64               `json:"total_cents"`
	Lines         []OrderLine         `json:"lines"`
}

// PurchaseCreatedEvent is emitted when a purchase order commits.
type PurchaseCreatedEvent struct {
	PurchaseID  uuid.UUID   `json:"purchase_id"`
	OrderNumber string      `json:"order_number"`
	SupplierID  uuid.UUID   `json:"supplier_id"`
	TotalCents  int64       `json:"total_cents"`
	VATCents    int64       `json:"vat_cents"`
	Lines       []OrderLine `json:"lines"`
}

// ReceivedLine reports the quantities applied to one purchase line.
type ReceivedLine struct {
	PurchaseItemID   uuid.UUID `json:"purchase_item_id"`
	ProductID        uuid.UUID `json:"product_id"`
	QuantityApplied  int       `json:"quantity_applied"`
	QuantityReceived int       `json:"quantity_received"`
	QuantityOrdered  int       `json:"quantity_ordered"`
}

// PurchaseReceivedEvent is emitted after each receiving operation.
type PurchaseReceivedEvent struct {
	PurchaseID  uuid.UUID            `json:"purchase_id"`
	OrderNumber string               `json:"order_number"`
	Status      enums.PurchaseStatus `json:"status"`
	Lines       []ReceivedLine       `json:"lines"`
}

// OrderStatusChangedEvent covers explicit sale and purchase transitions as
// well as sales completed by payment reconciliation.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Kind        string    `json:"kind"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Reason      string    `json:"reason,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// PaymentResolvedEvent is emitted when an STK push attempt reaches a
// terminal status.
type PaymentResolvedEvent struct {
	PaymentAttemptID  uuid.UUID                  `json:"payment_attempt_id"`
	CheckoutRequestID string                     `json:"checkout_request_id"`
	SaleID            *uuid.UUID                 `json:"sale_id,omitempty"`
	Status            enums.PaymentAttemptStatus `json:"status"`
	ResultCode        int                        `json:"result_code"`
	ResultDesc        string                     `json:"result_desc,omitempty"`
	ReceiptNumber     string                     `json:"receipt_number,omitempty"`
	AmountCents       int64                      `json:"amount_cents"`
	ResolvedVia       enums.PaymentResolution    `json:"resolved_via"`
}
