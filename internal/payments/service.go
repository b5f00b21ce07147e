package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/mpesa"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

const maxAccountReference = 12

var centsPerUnit = decimal.NewFromInt(100)

type ServiceParams struct {
	Repo              Repository
	Gateway           Gateway
	Sales             saleSettler
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Metrics           paymentMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

// Service reconciles STK push attempts against sales. Callbacks and polls
// share one apply path; the first terminal verdict wins.
type Service struct {
	repo    Repository
	gateway Gateway
	sales   saleSettler
	tx      txRunner
	outbox  outboxPublisher
	metrics paymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	case params.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	case params.Sales == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales service required")
	case params.TransactionRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	svc := &Service{
		repo:    params.Repo,
		gateway: params.Gateway,
		sales:   params.Sales,
		tx:      params.TransactionRunner,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Clock,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// WholeUnitCents rounds an amount up to whole currency units, in cents.
func WholeUnitCents(cents int64) int64 {
	return decimal.NewFromInt(cents).Div(centsPerUnit).Ceil().Mul(centsPerUnit).IntPart()
}

// Initiate sends an STK push and records the accepted attempt as pending.
// A rejected push records nothing.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (*models.PaymentAttempt, error) {
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(input.AccountReference)
	var amount int64
	if input.AmountCents != nil {
		amount = *input.AmountCents
	}

	if input.SaleID != nil {
		sale, err := s.sales.GetSale(ctx, *input.SaleID)
		if err != nil {
			return nil, err
		}
		if sale.Status != enums.SaleStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "sale is not awaiting payment").
				WithDetails(map[string]any{"sale_id": sale.ID, "status": sale.Status})
		}
		if input.AmountCents == nil {
			amount = sale.TotalCents
		} else if WholeUnitCents(amount) != WholeUnitCents(sale.TotalCents) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match sale total").
				WithDetails(map[string]any{"sale_id": sale.ID, "amount_cents": amount, "total_cents": sale.TotalCents})
		}
		pending, err := s.repo.HasPendingForSale(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already pending for sale").
				WithDetails(map[string]any{"sale_id": sale.ID})
		}
		if reference == "" {
			reference = sale.OrderNumber
		}
	}

	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account reference is required without a sale")
	}
	if len(reference) > maxAccountReference {
		reference = reference[:maxAccountReference]
	}
	amount = WholeUnitCents(amount)

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "Payment"
	}

	resp, err := s.gateway.Initiate(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           amount / 100,
		AccountReference: reference,
		Description:      description,
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "stk push failed")
		}
		return nil, err
	}

	attempt := &models.PaymentAttempt{
		ID:                uuid.New(),
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		SaleID:            input.SaleID,
		Phone:             phone,
		AmountCents:       amount,
		AccountReference:  reference,
		Status:            enums.PaymentAttemptPending,
	}
	// The gateway already holds the push; losing the row would orphan it.
	if err := s.repo.Create(context.WithoutCancel(ctx), attempt); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithCheckoutRequestID(ctx, attempt.CheckoutRequestID)
		s.logg.Info(s.logg.WithField(logCtx, "amount_cents", attempt.AmountCents), "stk push accepted")
	}
	return attempt, nil
}

// Get returns the attempt for a checkout request id.
func (s *Service) Get(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error) {
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}
	return s.repo.FindByCheckoutRequestID(ctx, checkoutRequestID)
}

// HandleCallback applies the gateway's callback. Replays and callbacks for
// attempts a poll already resolved are acknowledged without side effects.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (Outcome, error) {
	if strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}
	attempt, err := s.repo.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		return "", err
	}

	if attempt.CallbackReceived || attempt.Status.IsTerminal() {
		if _, err := s.repo.MarkCallbackReceived(ctx, attempt.ID); err != nil {
			return "", err
		}
		return OutcomeDuplicate, nil
	}

	resolution := Resolution{
		Status:           StatusForResultCode(cb.ResultCode),
		ResultCode:       cb.ResultCode,
		ResultDesc:       cb.ResultDesc,
		Via:              enums.PaymentResolvedViaCallback,
		At:               s.now().UTC(),
		CallbackReceived: true,
		PaidCents:        cb.AmountCents,
	}
	if resolution.Status == enums.PaymentAttemptSuccess {
		receipt := strings.TrimSpace(cb.ReceiptNumber)
		if receipt == "" {
			receipt = attempt.CheckoutRequestID
		}
		resolution.TransactionID = &receipt
	}

	applied, err := s.apply(ctx, attempt, resolution)
	if err != nil {
		return "", err
	}
	if !applied {
		if _, err := s.repo.MarkCallbackReceived(ctx, attempt.ID); err != nil {
			return "", err
		}
		return OutcomeDuplicate, nil
	}
	return OutcomeApplied, nil
}

// Query asks the gateway for the attempt's status. Gateway errors leave the
// attempt untouched.
func (s *Service) Query(ctx context.Context, checkoutRequestID string) (*Result, error) {
	attempt, err := s.Get(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return s.poll(ctx, attempt)
}

func (s *Service) poll(ctx context.Context, attempt *models.PaymentAttempt) (*Result, error) {
	if attempt.Status.IsTerminal() {
		return &Result{Attempt: attempt, Outcome: OutcomeDuplicate}, nil
	}

	answer, err := s.gateway.Query(ctx, attempt.CheckoutRequestID)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "stk query failed")
		}
		return nil, err
	}

	now := s.now().UTC()
	if answer.Pending {
		if err := s.repo.TouchPolled(ctx, attempt.ID, now); err != nil {
			return nil, err
		}
		attempt.LastPolledAt = &now
		return &Result{Attempt: attempt, Outcome: OutcomePending}, nil
	}

	resolution := Resolution{
		Status:     StatusForResultCode(answer.ResultCode),
		ResultCode: answer.ResultCode,
		ResultDesc: answer.ResultDesc,
		Via:        enums.PaymentResolvedViaQuery,
		At:         now,
	}
	if resolution.Status == enums.PaymentAttemptSuccess {
		// The query answer carries no receipt.
		reference := attempt.CheckoutRequestID
		resolution.TransactionID = &reference
	}

	applied, err := s.apply(ctx, attempt, resolution)
	if err != nil {
		return nil, err
	}
	outcome := OutcomeApplied
	if !applied {
		outcome = OutcomeDuplicate
	}
	updated, err := s.repo.FindByCheckoutRequestID(ctx, attempt.CheckoutRequestID)
	if err != nil {
		return nil, err
	}
	return &Result{Attempt: updated, Outcome: outcome}, nil
}

// apply writes the verdict, completes the linked sale on success and queues
// the payment event, all in one transaction. It reports false when another
// path resolved the attempt first.
func (s *Service) apply(ctx context.Context, attempt *models.PaymentAttempt, resolution Resolution) (bool, error) {
	applied := false
	settlement := orders.SettlementOutcome("")

	commitCtx := context.WithoutCancel(ctx)
	err := s.tx.WithTx(commitCtx, func(tx *gorm.DB) error {
		won, err := s.repo.WithTx(tx).Resolve(commitCtx, attempt.ID, resolution)
		if err != nil || !won {
			return err
		}

		if resolution.Status == enums.PaymentAttemptSuccess && attempt.SaleID != nil {
			if underpaid(attempt, resolution) {
				settlement = orders.SettlementUnderpaid
			} else {
				settlement, err = s.sales.CompleteSalePayment(commitCtx, tx, *attempt.SaleID, *resolution.TransactionID)
				if err != nil {
					return err
				}
			}
		}

		if err := s.outbox.EmitIfNotExists(commitCtx, tx, paymentEvent(attempt, resolution)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.PaymentResolved(resolution.Status.String(), string(resolution.Via))
	}
	if s.logg != nil {
		logCtx := s.logg.WithCheckoutRequestID(ctx, attempt.CheckoutRequestID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"status":      resolution.Status,
			"result_code": resolution.ResultCode,
			"via":         resolution.Via,
			"settlement":  settlement,
		})
		if settlement == orders.SettlementUnderpaid {
			s.logg.Warn(s.logg.WithField(logCtx, "paid_cents", resolution.PaidCents), "payment below sale amount; sale left pending")
		} else {
			s.logg.Info(logCtx, "payment attempt resolved")
		}
	}
	return true, nil
}

// underpaid reports a confirmed amount short of what the attempt charged.
func underpaid(attempt *models.PaymentAttempt, resolution Resolution) bool {
	return resolution.PaidCents > 0 && resolution.PaidCents < attempt.AmountCents
}

func paymentEvent(attempt *models.PaymentAttempt, resolution Resolution) outbox.DomainEvent {
	eventType := enums.EventPaymentFailed
	if resolution.Status == enums.PaymentAttemptSuccess {
		eventType = enums.EventPaymentSucceeded
	}
	data := payloads.PaymentResolvedEvent{
		PaymentAttemptID:  attempt.ID,
		CheckoutRequestID: attempt.CheckoutRequestID,
		SaleID:            attempt.SaleID,
		Status:            resolution.Status,
		ResultCode:        resolution.ResultCode,
		ResultDesc:        resolution.ResultDesc,
		AmountCents:       attempt.AmountCents,
		ResolvedVia:       resolution.Via,
	}
	if resolution.TransactionID != nil {
		data.ReceiptNumber = *resolution.TransactionID
	}
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePaymentAttempt,
		AggregateID:   attempt.ID,
		OccurredAt:    resolution.At,
		Data:          data,
	}
}

// ReconcileStale polls pending attempts older than olderThan. Each attempt is
// handled on its own; failures are collected and returned together.
func (s *Service) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileReport, error) {
	var report ReconcileReport
	if olderThan <= 0 {
		return report, pkgerrors.New(pkgerrors.CodeValidation, "stale threshold must be positive")
	}
	if limit <= 0 {
		return report, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}

	cutoff := s.now().UTC().Add(-olderThan)
	attempts, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return report, err
	}

	var errs error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		report.Checked++
		result, err := s.poll(ctx, &attempts[i])
		if err != nil {
			report.Failed++
			errs = multierr.Append(errs, err)
			if s.logg != nil {
				s.logg.Warn(s.logg.WithCheckoutRequestID(ctx, attempts[i].CheckoutRequestID), "stale payment poll failed")
			}
			continue
		}
		switch result.Outcome {
		case OutcomePending:
			report.StillPending++
		default:
			report.Resolved++
		}
	}
	return report, errs
}
