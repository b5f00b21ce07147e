package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const (
	saleOrderNumberIndex     = "ux_sales_order_number"
	purchaseOrderNumberIndex = "ux_purchases_order_number"
)

// SQLite reports the column instead of the constraint name.
var orderNumberColumns = map[string]string{
	saleOrderNumberIndex:     "sales.order_number",
	purchaseOrderNumberIndex: "purchases.order_number",
}

func orderNumberTaken(err error, constraint string) bool {
	return dbpkg.IsUniqueViolation(err, constraint) || dbpkg.IsUniqueViolation(err, orderNumberColumns[constraint])
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateSale inserts the header and its items. A duplicate order number is a
// retryable conflict.
func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		if orderNumberTaken(err, saleOrderNumberIndex) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken").
				WithDetails(map[string]any{"order_number": sale.OrderNumber})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
	}
	return nil
}

func (r *repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		if orderNumberTaken(err, purchaseOrderNumberIndex) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken").
				WithDetails(map[string]any{"order_number": purchase.OrderNumber})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert purchase")
	}
	return nil
}

func (r *repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return r.findSale(ctx, r.db.WithContext(ctx), id)
}

// LockSale loads the sale with its row locked until the transaction ends.
func (r *repository) LockSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return r.findSale(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) findSale(ctx context.Context, q *gorm.DB, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := q.Where("id = ?", id).First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found").
				WithDetails(map[string]any{"sale_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	if err := r.db.WithContext(ctx).Where("sale_id = ?", id).Order("created_at ASC, id ASC").Find(&sale.Items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale items")
	}
	return &sale, nil
}

func (r *repository) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return r.findPurchase(ctx, r.db.WithContext(ctx), id)
}

func (r *repository) LockPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return r.findPurchase(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) findPurchase(ctx context.Context, q *gorm.DB, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := q.Where("id = ?", id).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found").
				WithDetails(map[string]any{"purchase_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	if err := r.db.WithContext(ctx).Where("purchase_id = ?", id).Order("created_at ASC, id ASC").Find(&purchase.Items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase items")
	}
	return &purchase, nil
}

// TransitionSale moves the sale from one status to another only if it is
// still in from. It reports whether the row changed.
func (r *repository) TransitionSale(ctx context.Context, id uuid.UUID, from, to enums.SaleStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update sale status")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TransitionPurchase(ctx context.Context, id uuid.UUID, from, to enums.PurchaseStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update purchase status")
	}
	return res.RowsAffected == 1, nil
}

// ApplyReceipt adds qty to quantity_received unless that would exceed the
// ordered quantity. It reports whether the line was updated.
func (r *repository) ApplyReceipt(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE purchase_items
		SET quantity_received = quantity_received + ?,
			updated_at = ?
		WHERE id = ? AND quantity_received + ? <= quantity
	`, qty, at, itemID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply purchase receipt")
	}
	return res.RowsAffected == 1, nil
}
