package enums

// PaymentAttemptStatus tracks an STK push from initiation to resolution.
// Initiated is only observed in memory; persisted attempts start as pending.
type PaymentAttemptStatus string

const (
	PaymentAttemptInitiated PaymentAttemptStatus = "initiated"
	PaymentAttemptPending   PaymentAttemptStatus = "pending"
	PaymentAttemptSuccess   PaymentAttemptStatus = "success"
	PaymentAttemptFailed    PaymentAttemptStatus = "failed"
	PaymentAttemptCancelled PaymentAttemptStatus = "cancelled"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptInitiated,
	PaymentAttemptPending,
	PaymentAttemptSuccess,
	PaymentAttemptFailed,
	PaymentAttemptCancelled,
}

func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	return member(p, validPaymentAttemptStatuses)
}

// IsTerminal reports whether the attempt has been resolved.
func (p PaymentAttemptStatus) IsTerminal() bool {
	return p == PaymentAttemptSuccess || p == PaymentAttemptFailed || p == PaymentAttemptCancelled
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	return parse(value, validPaymentAttemptStatuses, "payment attempt status")
}

// PaymentResolution records which path resolved an attempt.
type PaymentResolution string

const (
	PaymentResolvedViaCallback PaymentResolution = "callback"
	PaymentResolvedViaQuery    PaymentResolution = "query"
)
