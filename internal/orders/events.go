package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

const (
	kindSale     = "sale"
	kindPurchase = "purchase"
)

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}

func saleCreatedEvent(sale *models.Sale, actor Actor) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			VATCents:       item.VATCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Actor:         buildActor(actor),
		Data: payloads.SaleCreatedEvent{
			SaleID:        sale.ID,
			OrderNumber:   sale.OrderNumber,
			CustomerID:    sale.CustomerID,
			Status:        sale.Status,
			PaymentMethod: sale.PaymentMethod,
			SubtotalCents: sale.SubtotalCents,
			VATCents:      sale.VATCents,
			DiscountCents: sale.DiscountCents,
			TotalCents:    sale.TotalCents,
			Lines:         lines,
		},
	}
}

func purchaseCreatedEvent(purchase *models.Purchase, actor Actor) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitCostCents,
			VATCents:       item.VATCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventPurchaseCreated,
		AggregateType: enums.AggregatePurchase,
		AggregateID:   purchase.ID,
		Actor:         buildActor(actor),
		Data: payloads.PurchaseCreatedEvent{
			PurchaseID:  purchase.ID,
			OrderNumber: purchase.OrderNumber,
			SupplierID:  purchase.SupplierID,
			TotalCents:  purchase.TotalCents,
			VATCents:    purchase.VATCents,
			Lines:       lines,
		},
	}
}

func purchaseReceivedEvent(purchase *models.Purchase, applied map[uuid.UUID]int, actor Actor) outbox.DomainEvent {
	lines := make([]payloads.ReceivedLine, 0, len(applied))
	for _, item := range purchase.Items {
		qty, ok := applied[item.ID]
		if !ok {
			continue
		}
		lines = append(lines, payloads.ReceivedLine{
			PurchaseItemID:   item.ID,
			ProductID:        item.ProductID,
			QuantityApplied:  qty,
			QuantityReceived: item.QuantityReceived,
			QuantityOrdered:  item.Quantity,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventPurchaseReceived,
		AggregateType: enums.AggregatePurchase,
		AggregateID:   purchase.ID,
		Actor:         buildActor(actor),
		Data: payloads.PurchaseReceivedEvent{
			PurchaseID:  purchase.ID,
			OrderNumber: purchase.OrderNumber,
			Status:      purchase.Status,
			Lines:       lines,
		},
	}
}

func statusChangedEvent(kind string, id uuid.UUID, orderNumber, from, to, reason string, at time.Time, actor Actor) outbox.DomainEvent {
	aggregate := enums.AggregateSale
	if kind == kindPurchase {
		aggregate = enums.AggregatePurchase
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: aggregate,
		AggregateID:   id,
		Actor:         buildActor(actor),
		OccurredAt:    at,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     id,
			OrderNumber: orderNumber,
			Kind:        kind,
			From:        from,
			To:          to,
			Reason:      reason,
			ChangedAt:   at,
		},
	}
}
