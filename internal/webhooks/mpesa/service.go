package mpesawebhook

import (
	"context"

	"github.com/angelmondragon/retailops-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

// GuardScope namespaces callback guard keys in Redis.
const GuardScope = "mpesa_stk"

// Ack is the body the gateway expects back. It is always sent with 200.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var (
	AckAccepted = Ack{ResultCode: 0, ResultDesc: "Accepted"}
	AckRejected = Ack{ResultCode: 1, ResultDesc: "Rejected"}
)

type callbackHandler interface {
	HandleCallback(ctx context.Context, cb payments.Callback) (payments.Outcome, error)
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, checkoutRequestID string) (bool, error)
	Delete(ctx context.Context, checkoutRequestID string) error
}

type ackMetrics interface {
	CallbackAcked(outcome string)
}

type ServiceParams struct {
	Payments callbackHandler
	Guard    replayGuard
	Metrics  ackMetrics
	Logger   *logger.Logger
}

type Service struct {
	payments callbackHandler
	guard    replayGuard
	metrics  ackMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "callback guard required")
	}
	return &Service{
		payments: params.Payments,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process handles one raw callback body and returns the ack to send. Errors
// are logged here and never reach the gateway.
func (s *Service) Process(ctx context.Context, raw []byte) Ack {
	cb, err := ParseCallback(raw)
	if err != nil {
		s.logError(ctx, "mpesa callback rejected", err)
		s.count("malformed")
		return AckRejected
	}
	if s.logg != nil {
		ctx = s.logg.WithCheckoutRequestID(ctx, cb.CheckoutRequestID)
	}

	guarded := true
	seen, err := s.guard.CheckAndMark(ctx, cb.CheckoutRequestID)
	if err != nil {
		// Redis is only a shortcut; the status update still deduplicates.
		guarded = false
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard unavailable")
		}
	}
	if seen {
		s.count("replay")
		return AckAccepted
	}

	outcome, err := s.payments.HandleCallback(ctx, cb)
	if err != nil {
		if guarded {
			if delErr := s.guard.Delete(context.WithoutCancel(ctx), cb.CheckoutRequestID); delErr != nil {
				s.logError(ctx, "release callback guard", delErr)
			}
		}
		s.logError(ctx, "mpesa callback processing failed", err)
		s.count("failed")
		return AckRejected
	}

	s.count(string(outcome))
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "mpesa callback processed")
	}
	return AckAccepted
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CallbackAcked(outcome)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
