package registry

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries     map[enums.OutboxEventType]EventDescriptor
	ordersTopic string
}

// NonRetryableError signals the publisher should dead-letter a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry. Order lifecycle events go to the
// orders topic; payment resolutions go to the payments topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.PaymentsTopic == "" {
		return nil, fmt.Errorf("payments topic is required")
	}

	reg := &EventRegistry{
		entries:     make(map[enums.OutboxEventType]EventDescriptor),
		ordersTopic: cfg.OrdersTopic,
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventSaleCreated,
			AggregateType:  enums.AggregateSale,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() any { return &payloads.SaleCreatedEvent{} },
		},
		{
			EventType:      enums.EventPurchaseCreated,
			AggregateType:  enums.AggregatePurchase,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() any { return &payloads.PurchaseCreatedEvent{} },
		},
		{
			EventType:      enums.EventPurchaseReceived,
			AggregateType:  enums.AggregatePurchase,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() any { return &payloads.PurchaseReceivedEvent{} },
		},
		{
			EventType:      enums.EventPaymentSucceeded,
			AggregateType:  enums.AggregatePaymentAttempt,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() any { return &payloads.PaymentResolvedEvent{} },
		},
		{
			EventType:      enums.EventPaymentFailed,
			AggregateType:  enums.AggregatePaymentAttempt,
			Topic:          cfg.PaymentsTopic,
			PayloadFactory: func() any { return &payloads.PaymentResolvedEvent{} },
		},
	} {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// statusChangeAggregates lists the aggregates allowed to emit
// order_status_changed, which is shared by sales and purchases.
var statusChangeAggregates = map[enums.OutboxAggregateType]bool{
	enums.AggregateSale:     true,
	enums.AggregatePurchase: true,
}

func (r *EventRegistry) lookup(event models.OutboxEvent) (EventDescriptor, error) {
	if event.EventType == enums.EventOrderStatusChanged {
		if !statusChangeAggregates[event.AggregateType] {
			return EventDescriptor{}, fmt.Errorf("aggregate mismatch: %s cannot emit %s", event.AggregateType, event.EventType)
		}
		return EventDescriptor{
			EventType:      event.EventType,
			AggregateType:  event.AggregateType,
			Topic:          r.ordersTopic,
			PayloadFactory: func() any { return &payloads.OrderStatusChangedEvent{} },
		}, nil
	}
	desc, ok := r.entries[event.EventType]
	if !ok {
		return EventDescriptor{}, fmt.Errorf("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return EventDescriptor{}, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	return desc, nil
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.lookup(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := desc.PayloadFactory()
	if err := envelope.DecodeData(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
