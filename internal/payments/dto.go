package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Gateway result codes with a fixed meaning. Every other code is a failure.
const (
	ResultCodeSuccess   = 0
	ResultCodeCancelled = 1032
)

// InitiateInput starts an STK push. AmountCents defaults to the linked sale's
// total and, when a sale is linked, must round to the same charge. The charged
// amount is always rounded up to whole currency units.
type InitiateInput struct {
	SaleID           *uuid.UUID
	Phone            string
	AmountCents      *int64
	AccountReference string
	Description      string
}

// Callback is the gateway's asynchronous verdict on one STK push.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	ReceiptNumber     string
	AmountCents       int64
	Phone             string
	TransactionDate   *time.Time
}

// Outcome tells the caller whether a callback or poll changed anything.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomePending   Outcome = "pending"
)

// Resolution is a terminal verdict ready to be written to an attempt.
// PaidCents is the amount the gateway confirmed, zero when unreported.
type Resolution struct {
	Status           enums.PaymentAttemptStatus
	ResultCode       int
	ResultDesc       string
	TransactionID    *string
	Via              enums.PaymentResolution
	At               time.Time
	CallbackReceived bool
	PaidCents        int64
}

// ReconcileReport summarizes one ReconcileStale sweep.
type ReconcileReport struct {
	Checked      int
	Resolved     int
	StillPending int
	Failed       int
}

// Result pairs the attempt with what the last operation did to it.
type Result struct {
	Attempt *models.PaymentAttempt
	Outcome Outcome
}

// StatusForResultCode maps a gateway result code to a terminal status.
func StatusForResultCode(code int) enums.PaymentAttemptStatus {
	switch code {
	case ResultCodeSuccess:
		return enums.PaymentAttemptSuccess
	case ResultCodeCancelled:
		return enums.PaymentAttemptCancelled
	default:
		return enums.PaymentAttemptFailed
	}
}
