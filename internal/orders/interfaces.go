package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
)

// Repository defines persistence operations for sale and purchase tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) error
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	LockSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	LockPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	TransitionSale(ctx context.Context, id uuid.UUID, from, to enums.SaleStatus, updates map[string]any) (bool, error)
	TransitionPurchase(ctx context.Context, id uuid.UUID, from, to enums.PurchaseStatus, updates map[string]any) (bool, error)
	ApplyReceipt(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockLedger mutates product stock inside the caller's transaction.
type StockLedger interface {
	Reserve(product models.Product, qty int) error
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type numberGenerator interface {
	Next(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error)
}

type orderMetrics interface {
	OrderCommitted(kind, status string)
	OrderRejected(kind, code string)
	CommitRetried(kind string)
}
