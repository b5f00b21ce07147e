// Package stock mutates products.quantity_in_stock. Every mutation runs on
// the caller's transaction and is a conditional update, so stock never goes
// below zero regardless of how many orders commit at once.
package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// Shortage describes an InsufficientStock error.
type Shortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Available   int       `json:"available"`
	Required    int       `json:"required"`
}

// InsufficientStock builds the typed error for a shortage.
func InsufficientStock(s Shortage) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for "+s.ProductName).WithDetails(s)
}

type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve checks that product can cover qty without writing anything.
// Services always pass.
func (l *Ledger) Reserve(product models.Product, qty int) error {
	if product.IsService {
		return nil
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if product.QuantityInStock < qty {
		return InsufficientStock(Shortage{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.QuantityInStock,
			Required:    qty,
		})
	}
	return nil
}

// Decrement removes qty units. Zero affected rows means another transaction
// got there first (or the product vanished); the current row is re-read to
// report which.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := requireTx(tx, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_service = ? AND quantity_in_stock >= ?
	`, qty, productID, false, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	if err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	if product.IsService {
		return nil
	}
	return InsufficientStock(Shortage{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.QuantityInStock,
		Required:    qty,
	})
}

// Increment returns qty units to stock. Services are left untouched.
func (l *Ledger) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if err := requireTx(tx, qty); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity_in_stock = quantity_in_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_service = ?
	`, qty, productID, false)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

func requireTx(tx *gorm.DB, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stock mutation requires a transaction")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
