package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/api/validators"
	internalorders "github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

const maxNoteLength = 500

type lineRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty" validate:"omitempty,gte=0"`
	DiscountCents  int64  `json:"discount_cents" validate:"gte=0"`
}

type createSaleRequest struct {
	CustomerID    string        `json:"customer_id" validate:"required,uuid"`
	PaymentMethod string        `json:"payment_method" validate:"required,payment_method"`
	DiscountCents int64         `json:"discount_cents" validate:"gte=0"`
	Notes         *string       `json:"notes,omitempty"`
	Lines         []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createPurchaseRequest struct {
	SupplierID    string        `json:"supplier_id" validate:"required,uuid"`
	PaymentMethod string        `json:"payment_method" validate:"required,payment_method"`
	DiscountCents int64         `json:"discount_cents" validate:"gte=0"`
	Notes         *string       `json:"notes,omitempty"`
	ExpectedAt    *time.Time    `json:"expected_at,omitempty"`
	Lines         []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type receiveLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=255"`
}

func toLineInputs(lines []lineRequest) []internalorders.LineInput {
	out := make([]internalorders.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, internalorders.LineInput{
			ProductID:      uuid.MustParse(line.ProductID),
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
		})
	}
	return out
}

func sanitizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	clean := validators.SanitizeString(*notes, maxNoteLength)
	if clean == "" {
		return nil
	}
	return &clean
}

// SaleResponse is the public view of a committed sale.
type SaleResponse struct {
	ID               uuid.UUID          `json:"id"`
	OrderNumber      string             `json:"order_number"`
	CustomerID       uuid.UUID          `json:"customer_id"`
	ActorID          uuid.UUID          `json:"actor_id"`
	ActorRole        string             `json:"actor_role"`
	Status           enums.SaleStatus   `json:"status"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentReference *string            `json:"payment_reference,omitempty"`
	SubtotalCents    int64              `json:"subtotal_cents"`
	VATCents         int64              `json:"vat_cents"`
	DiscountCents    int64              `json:"discount_cents"`
	TotalCents       int64              `json:"total_cents"`
	Notes            *string            `json:"notes,omitempty"`
	Items            []SaleItemResponse `json:"items"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	RefundedAt       *time.Time         `json:"refunded_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type SaleItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	VATRate        string    `json:"vat_rate"`
	VATInclusive   bool      `json:"vat_inclusive"`
	VATCents       int64     `json:"vat_cents"`
	DiscountCents  int64     `json:"discount_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
	IsService      bool      `json:"is_service"`
}

func saleResponse(sale *models.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate.StringFixed(2),
			VATInclusive:   item.VATInclusive,
			VATCents:       item.VATCents,
			DiscountCents:  item.DiscountCents,
			LineTotalCents: item.LineTotalCents,
			IsService:      item.IsService,
		})
	}
	return SaleResponse{
		ID:               sale.ID,
		OrderNumber:      sale.OrderNumber,
		CustomerID:       sale.CustomerID,
		ActorID:          sale.ActorID,
		ActorRole:        sale.ActorRole,
		Status:           sale.Status,
		PaymentMethod:    sale.PaymentMethod.String(),
		PaymentReference: sale.PaymentReference,
		SubtotalCents:    sale.SubtotalCents,
		VATCents:         sale.VATCents,
		DiscountCents:    sale.DiscountCents,
		TotalCents:       sale.TotalCents,
		Notes:            sale.Notes,
		Items:            items,
		CompletedAt:      sale.CompletedAt,
		CancelledAt:      sale.CancelledAt,
		RefundedAt:       sale.RefundedAt,
		CreatedAt:        sale.CreatedAt,
	}
}

// PurchaseResponse is the public view of a supplier order.
type PurchaseResponse struct {
	ID            uuid.UUID              `json:"id"`
	OrderNumber   string                 `json:"order_number"`
	SupplierID    uuid.UUID              `json:"supplier_id"`
	ActorID       uuid.UUID              `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Status        enums.PurchaseStatus   `json:"status"`
	PaymentMethod string                 `json:"payment_method"`
	SubtotalCents int64                  `json:"subtotal_cents"`
	VATCents      int64                  `json:"vat_cents"`
	DiscountCents int64                  `json:"discount_cents"`
	TotalCents    int64                  `json:"total_cents"`
	Notes         *string                `json:"notes,omitempty"`
	Items         []PurchaseItemResponse `json:"items"`
	ExpectedAt    *time.Time             `json:"expected_at,omitempty"`
	ReceivedAt    *time.Time             `json:"received_at,omitempty"`
	CancelledAt   *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type PurchaseItemResponse struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	QuantityReceived int       `json:"quantity_received"`
	UnitCostCents    int64     `json:"unit_cost_cents"`
	VATRate          string    `json:"vat_rate"`
	VATCents         int64     `json:"vat_cents"`
	DiscountCents    int64     `json:"discount_cents"`
	LineTotalCents   int64     `json:"line_total_cents"`
	IsService        bool      `json:"is_service"`
}

func purchaseResponse(purchase *models.Purchase) PurchaseResponse {
	items := make([]PurchaseItemResponse, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		items = append(items, PurchaseItemResponse{
			ID:               item.ID,
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			QuantityReceived: item.QuantityReceived,
			UnitCostCents:    item.UnitCostCents,
			VATRate:          item.VATRate.StringFixed(2),
			VATCents:         item.VATCents,
			DiscountCents:    item.DiscountCents,
			LineTotalCents:   item.LineTotalCents,
			IsService:        item.IsService,
		})
	}
	return PurchaseResponse{
		ID:            purchase.ID,
		OrderNumber:   purchase.OrderNumber,
		SupplierID:    purchase.SupplierID,
		ActorID:       purchase.ActorID,
		ActorRole:     purchase.ActorRole,
		Status:        purchase.Status,
		PaymentMethod: purchase.PaymentMethod.String(),
		SubtotalCents: purchase.SubtotalCents,
		VATCents:      purchase.VATCents,
		DiscountCents: purchase.DiscountCents,
		TotalCents:    purchase.TotalCents,
		Notes:         purchase.Notes,
		Items:         items,
		ExpectedAt:    purchase.ExpectedAt,
		ReceivedAt:    purchase.ReceivedAt,
		CancelledAt:   purchase.CancelledAt,
		CreatedAt:     purchase.CreatedAt,
	}
}
