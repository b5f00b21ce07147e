package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/mpesa"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
)

// Repository persists payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error)
	HasPendingForSale(ctx context.Context, saleID uuid.UUID) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (bool, error)
	MarkCallbackReceived(ctx context.Context, id uuid.UUID) (bool, error)
	TouchPolled(ctx context.Context, id uuid.UUID, at time.Time) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error)
}

// Gateway is the STK push API.
type Gateway interface {
	Initiate(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
	Query(ctx context.Context, checkoutRequestID string) (*mpesa.QueryResult, error)
}

type saleSettler interface {
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	CompleteSalePayment(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, reference string) (orders.SettlementOutcome, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentMetrics interface {
	PaymentResolved(status, via string)
}
