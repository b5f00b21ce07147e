package payments

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/api/responses"
	"github.com/angelmondragon/retailops-backend/api/validators"
	internalpayments "github.com/angelmondragon/retailops-backend/internal/payments"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

// Service is the payment reconciliation surface used by the HTTP layer.
type Service interface {
	Initiate(ctx context.Context, input internalpayments.InitiateInput) (*models.PaymentAttempt, error)
	Get(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error)
	Query(ctx context.Context, checkoutRequestID string) (*internalpayments.Result, error)
}

type stkPushRequest struct {
	SaleID           *string `json:"sale_id,omitempty" validate:"omitempty,uuid"`
	Phone            string  `json:"phone" validate:"required,min=9,max=16"`
	AmountCents      *int64  `json:"amount_cents,omitempty" validate:"omitempty,gt=0"`
	AccountReference string  `json:"account_reference,omitempty" validate:"max=64"`
	Description      string  `json:"description,omitempty" validate:"max=64"`
}

// AttemptResponse is the public view of a payment attempt.
type AttemptResponse struct {
	ID                uuid.UUID                  `json:"id"`
	MerchantRequestID string                     `json:"merchant_request_id"`
	CheckoutRequestID string                     `json:"checkout_request_id"`
	SaleID            *uuid.UUID                 `json:"sale_id,omitempty"`
	Phone             string                     `json:"phone"`
	AmountCents       int64                      `json:"amount_cents"`
	AccountReference  string                     `json:"account_reference"`
	Status            enums.PaymentAttemptStatus `json:"status"`
	ResultCode        *int                       `json:"result_code,omitempty"`
	ResultDesc        *string                    `json:"result_desc,omitempty"`
	TransactionID     *string                    `json:"transaction_id,omitempty"`
	CallbackReceived  bool                       `json:"callback_received"`
	ResolvedVia       *enums.PaymentResolution   `json:"resolved_via,omitempty"`
	ResolvedAt        *time.Time                 `json:"resolved_at,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
}

type queryResponse struct {
	Outcome internalpayments.Outcome `json:"outcome"`
	Attempt AttemptResponse          `json:"attempt"`
}

func attemptResponse(a *models.PaymentAttempt) AttemptResponse {
	return AttemptResponse{
		ID:                a.ID,
		MerchantRequestID: a.MerchantRequestID,
		CheckoutRequestID: a.CheckoutRequestID,
		SaleID:            a.SaleID,
		Phone:             a.Phone,
		AmountCents:       a.AmountCents,
		AccountReference:  a.AccountReference,
		Status:            a.Status,
		ResultCode:        a.ResultCode,
		ResultDesc:        a.ResultDesc,
		TransactionID:     a.TransactionID,
		CallbackReceived:  a.CallbackReceived,
		ResolvedVia:       a.ResolvedVia,
		ResolvedAt:        a.ResolvedAt,
		CreatedAt:         a.CreatedAt,
	}
}

// InitiateSTKPush sends a payment prompt to the customer's phone.
func InitiateSTKPush(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		var body stkPushRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalpayments.InitiateInput{
			Phone:            body.Phone,
			AmountCents:      body.AmountCents,
			AccountReference: validators.SanitizeString(body.AccountReference, 64),
			Description:      validators.SanitizeString(body.Description, 64),
		}
		if body.SaleID != nil {
			saleID := uuid.MustParse(*body.SaleID)
			input.SaleID = &saleID
		}

		attempt, err := svc.Initiate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, attemptResponse(attempt))
	}
}

func GetAttempt(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		checkoutID, err := validators.RequiredParam(r, "checkoutRequestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attempt, err := svc.Get(r.Context(), checkoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attemptResponse(attempt))
	}
}

// QueryAttempt asks the gateway for the attempt's status and applies a
// terminal answer.
func QueryAttempt(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		checkoutID, err := validators.RequiredParam(r, "checkoutRequestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Query(r.Context(), checkoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, queryResponse{Outcome: result.Outcome, Attempt: attemptResponse(result.Attempt)})
	}
}
