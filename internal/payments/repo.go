package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const (
	checkoutRequestIndex = "ux_payment_attempts_checkout_request_id"
	pendingSaleIndex     = "ux_payment_attempts_pending_sale"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment attempt repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, checkoutRequestIndex) || dbpkg.IsUniqueViolation(err, "payment_attempts.checkout_request_id") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout request already recorded").
				WithDetails(map[string]any{"checkout_request_id": attempt.CheckoutRequestID})
		}
		if attempt.SaleID != nil && (dbpkg.IsUniqueViolation(err, pendingSaleIndex) || dbpkg.IsUniqueViolation(err, "payment_attempts.sale_id")) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment already pending for sale").
				WithDetails(map[string]any{"sale_id": *attempt.SaleID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment attempt")
	}
	return nil
}

func (r *repository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found").
				WithDetails(map[string]any{"checkout_request_id": checkoutRequestID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	return &attempt, nil
}

// HasPendingForSale reports whether a push for the sale still awaits a verdict.
func (r *repository) HasPendingForSale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("sale_id = ? AND status = ?", saleID, enums.PaymentAttemptPending).
		Count(&n).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payment")
	}
	return n > 0, nil
}

// Resolve writes a terminal verdict only while the attempt is still pending.
// It reports whether this call won.
func (r *repository) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (bool, error) {
	values := map[string]any{
		"status":       resolution.Status,
		"result_code":  resolution.ResultCode,
		"result_desc":  resolution.ResultDesc,
		"resolved_via": resolution.Via,
		"resolved_at":  resolution.At,
		"updated_at":   resolution.At,
	}
	if resolution.TransactionID != nil {
		values["transaction_id"] = *resolution.TransactionID
	}
	if resolution.CallbackReceived {
		values["callback_received"] = true
	}
	res := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, enums.PaymentAttemptPending).
		Updates(values)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "resolve payment attempt")
	}
	return res.RowsAffected == 1, nil
}

// MarkCallbackReceived flags a late callback on an attempt the poller already
// resolved. It reports whether the flag flipped.
func (r *repository) MarkCallbackReceived(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND callback_received = ?", id, false).
		Updates(map[string]any{"callback_received": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark callback received")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TouchPolled(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, enums.PaymentAttemptPending).
		Updates(map[string]any{"last_polled_at": at, "updated_at": at}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment poll")
	}
	return nil
}

// ListStalePending returns pending attempts created before cutoff and not
// polled since, oldest first.
func (r *repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentAttemptPending, cutoff).
		Where("last_polled_at IS NULL OR last_polled_at < ?", cutoff).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payment attempts")
	}
	return attempts, nil
}
