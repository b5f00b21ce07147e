package enums

// PurchaseStatus tracks the lifecycle of a purchase order.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusOrdered   PurchaseStatus = "ordered"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPending,
	PurchaseStatusOrdered,
	PurchaseStatusReceived,
	PurchaseStatusCancelled,
}

func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	return member(p, validPurchaseStatuses)
}

// IsTerminal reports whether no further transition leaves this status.
func (p PurchaseStatus) IsTerminal() bool {
	return p == PurchaseStatusReceived || p == PurchaseStatusCancelled
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	return parse(value, validPurchaseStatuses, "purchase status")
}
