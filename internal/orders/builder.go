package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/tax"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// Builder validates and prices carts. It reads through the caller's
// transaction so validation and commit see the same rows, and never writes.
type Builder struct {
	catalog catalog.Repository
	stock   StockLedger
}

func NewBuilder(catalog catalog.Repository, stock StockLedger) *Builder {
	return &Builder{catalog: catalog, stock: stock}
}

// BuildSale prices a sale cart and checks stock for every tracked product.
func (b *Builder) BuildSale(ctx context.Context, tx *gorm.DB, input SaleInput) (*Draft, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, invalidPaymentMethod(input.PaymentMethod.String())
	}
	if err := validateLines(input.Lines, input.DiscountCents); err != nil {
		return nil, err
	}

	repo := b.catalog.WithTx(tx)
	if _, err := repo.FindCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}
	products, err := b.loadProducts(ctx, repo, input.Lines)
	if err != nil {
		return nil, err
	}

	required := map[uuid.UUID]int{}
	for _, line := range input.Lines {
		required[line.ProductID] += line.Quantity
	}
	for _, line := range input.Lines {
		qty, pending := required[line.ProductID]
		if !pending {
			continue
		}
		if err := b.stock.Reserve(products[line.ProductID], qty); err != nil {
			return nil, err
		}
		delete(required, line.ProductID)
	}

	return price(input.Lines, products, input.DiscountCents, func(p models.Product) (int64, decimal.Decimal, bool) {
		return p.SellingPriceCents, p.VATRate, p.IsVATInclusive
	})
}

// BuildPurchase prices a purchase cart. Purchase VAT is always added on top of
// the cost price.
func (b *Builder) BuildPurchase(ctx context.Context, tx *gorm.DB, input PurchaseInput) (*Draft, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, invalidPaymentMethod(input.PaymentMethod.String())
	}
	if err := validateLines(input.Lines, input.DiscountCents); err != nil {
		return nil, err
	}

	repo := b.catalog.WithTx(tx)
	supplier, err := repo.FindSupplier(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found").
			WithDetails(map[string]any{"supplier_id": input.SupplierID, "reason": "inactive"})
	}
	products, err := b.loadProducts(ctx, repo, input.Lines)
	if err != nil {
		return nil, err
	}

	return price(input.Lines, products, input.DiscountCents, func(p models.Product) (int64, decimal.Decimal, bool) {
		return p.CostPriceCents, p.VATRate, false
	})
}

func (b *Builder) loadProducts(ctx context.Context, repo catalog.Repository, lines []LineInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		product, ok := products[id]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return products, nil
}

type pricingFunc func(models.Product) (defaultUnit int64, rate decimal.Decimal, inclusive bool)

func price(lines []LineInput, products map[uuid.UUID]models.Product, discountCents int64, pricing pricingFunc) (*Draft, error) {
	draft := &Draft{Lines: make([]DraftLine, 0, len(lines)), DiscountCents: discountCents}
	var totals tax.Totals

	for i, line := range lines {
		product := products[line.ProductID]
		unit, rate, inclusive := pricing(product)
		if line.UnitPriceCents != nil {
			unit = *line.UnitPriceCents
		}

		subtotal := unit*int64(line.Quantity) - line.DiscountCents
		if subtotal < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line discount exceeds line amount").
				WithDetails(map[string]any{"line": i, "product_id": line.ProductID})
		}
		amounts, err := tax.Line(subtotal, rate, inclusive)
		if err != nil {
			return nil, err
		}
		totals.Add(amounts)

		draft.Lines = append(draft.Lines, DraftLine{
			Product:        product,
			Quantity:       line.Quantity,
			UnitCents:      unit,
			VATRate:        rate,
			VATInclusive:   inclusive,
			VATCents:       amounts.VATCents,
			DiscountCents:  line.DiscountCents,
			LineTotalCents: amounts.TotalCents,
		})
	}

	total, err := totals.Total(discountCents)
	if err != nil {
		return nil, err
	}
	draft.SubtotalCents = totals.SubtotalCents
	draft.VATCents = totals.VATCents
	draft.TotalCents = total
	return draft, nil
}

func validateLines(lines []LineInput, discountCents int64) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	if discountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			return lineError(i, "product id is required")
		case line.Quantity <= 0:
			return lineError(i, "quantity must be positive")
		case line.UnitPriceCents != nil && *line.UnitPriceCents < 0:
			return lineError(i, "unit price must not be negative")
		case line.DiscountCents < 0:
			return lineError(i, "line discount must not be negative")
		}
	}
	return nil
}

func lineError(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"line": index})
}

func invalidPaymentMethod(value string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
		WithDetails(map[string]any{"payment_method": value})
}
