package enums

// OutboxAggregateType names the record an outbox event is about.
type OutboxAggregateType string

const (
	AggregateSale           OutboxAggregateType = "sale"
	AggregatePurchase       OutboxAggregateType = "purchase"
	AggregatePaymentAttempt OutboxAggregateType = "payment_attempt"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSale,
	AggregatePurchase,
	AggregatePaymentAttempt,
}

func (a OutboxAggregateType) IsValid() bool {
	return member(a, validAggregateTypes)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(value, validAggregateTypes, "aggregate type")
}

// OutboxEventType is stored as text in outbox_events.event_type.
type OutboxEventType string

const (
	EventSaleCreated        OutboxEventType = "sale_created"
	EventPurchaseCreated    OutboxEventType = "purchase_created"
	EventPurchaseReceived   OutboxEventType = "purchase_received"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventPaymentSucceeded   OutboxEventType = "payment_succeeded"
	EventPaymentFailed      OutboxEventType = "payment_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleCreated,
	EventPurchaseCreated,
	EventPurchaseReceived,
	EventOrderStatusChanged,
	EventPaymentSucceeded,
	EventPaymentFailed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return member(e, validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(value, validOutboxEventTypes, "event type")
}

// OutboxDLQErrorReason records why the publisher gave up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return member(r, []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable})
}
