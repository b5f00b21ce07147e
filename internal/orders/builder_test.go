package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

func newTestBuilder(t *testing.T) (*Builder, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	return NewBuilder(catalog.NewRepository(conn), stock.NewLedger()), conn
}

func TestBuildSalePricesLines(t *testing.T) {
	b, conn := newTestBuilder(t)
	customer := dbtest.SeedCustomer(t, conn)
	exclusive := dbtest.SeedProduct(t, conn, 1000, dbtest.WithStock(10), dbtest.WithVAT("16", false))
	inclusive := dbtest.SeedProduct(t, conn, 1160, dbtest.WithStock(10), dbtest.WithVAT("16", true))

	draft, err := b.BuildSale(context.Background(), conn, SaleInput{
		CustomerID:    customer.ID,
		PaymentMethod: enums.PaymentMethodCash,
		DiscountCents: 100,
		Lines: []LineInput{
			line(exclusive.ID, 2),
			{ProductID: inclusive.ID, Quantity: 1, DiscountCents: 0},
		},
	})
	require.NoError(t, err)
	require.Len(t, draft.Lines, 2)

	require.Equal(t, int64(320), draft.Lines[0].VATCents)
	require.Equal(t, int64(2320), draft.Lines[0].LineTotalCents)
	require.Equal(t, int64(160), draft.Lines[1].VATCents)
	require.Equal(t, int64(1160), draft.Lines[1].LineTotalCents)

	require.Equal(t, int64(480), draft.VATCents)
	require.Equal(t, draft.SubtotalCents+draft.VATCents-draft.DiscountCents, draft.TotalCents)
	require.Equal(t, int64(3380), draft.TotalCents)
}

func TestBuildSaleUsesPriceOverride(t *testing.T) {
	b, conn := newTestBuilder(t)
	customer := dbtest.SeedCustomer(t, conn)
	product := dbtest.SeedProduct(t, conn, 1000, dbtest.WithStock(5))

	draft, err := b.BuildSale(context.Background(), conn, SaleInput{
		CustomerID:    customer.ID,
		PaymentMethod: enums.PaymentMethodCash,
		Lines:         []LineInput{{ProductID: product.ID, Quantity: 2, UnitPriceCents: cents(750)}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(750), draft.Lines[0].UnitCents)
	require.Equal(t, int64(1500), draft.TotalCents)
}

func TestBuildSaleAggregatesStockAcrossLines(t *testing.T) {
	b, conn := newTestBuilder(t)
	customer := dbtest.SeedCustomer(t, conn)
	product := dbtest.SeedProduct(t, conn, 100, dbtest.WithStock(3))

	_, err := b.BuildSale(context.Background(), conn, SaleInput{
		CustomerID:    customer.ID,
		PaymentMethod: enums.PaymentMethodCash,
		Lines:         []LineInput{line(product.ID, 2), line(product.ID, 2)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	shortage := pkgerrors.As(err).Details().(stock.Shortage)
	require.Equal(t, 3, shortage.Available)
	require.Equal(t, 4, shortage.Required)
}

func TestBuildSaleServicesSkipStock(t *testing.T) {
	b, conn := newTestBuilder(t)
	customer := dbtest.SeedCustomer(t, conn)
	service := dbtest.SeedProduct(t, conn, 2500, dbtest.AsService())

	draft, err := b.BuildSale(context.Background(), conn, SaleInput{
		CustomerID:    customer.ID,
		PaymentMethod: enums.PaymentMethodCash,
		Lines:         []LineInput{line(service.ID, 40)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(100000), draft.TotalCents)
}

func TestBuildSaleRejections(t *testing.T) {
	b, conn := newTestBuilder(t)
	customer := dbtest.SeedCustomer(t, conn)
	product := dbtest.SeedProduct(t, conn, 100, dbtest.WithStock(3))
	inactive := dbtest.SeedProduct(t, conn, 100, dbtest.WithStock(3), dbtest.Inactive())

	cases := []struct {
		name  string
		input SaleInput
		code  pkgerrors.Code
	}{
		{
			name:  "no lines",
			input: SaleInput{CustomerID: customer.ID, PaymentMethod: enums.PaymentMethodCash},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "missing customer id",
			input: SaleInput{PaymentMethod: enums.PaymentMethodCash, Lines: []LineInput{line(product.ID, 1)}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown customer",
			input: SaleInput{CustomerID: uuid.New(), PaymentMethod: enums.PaymentMethodCash, Lines: []LineInput{line(product.ID, 1)}},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name:  "unknown payment method",
			input: SaleInput{CustomerID: customer.ID, PaymentMethod: "barter", Lines: []LineInput{line(product.ID, 1)}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "zero quantity",
			input: SaleInput{CustomerID: customer.ID, PaymentMethod: enums.PaymentMethodCash, Lines: []LineInput{line(product.ID, 0)}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown product",
			input: SaleInput{CustomerID: customer.ID, PaymentMethod: enums.PaymentMethodCash, Lines: []LineInput{line(uuid.New(), 1)}},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name:  "inactive product",
			input: SaleInput{CustomerID: customer.ID, PaymentMethod: enums.PaymentMethodCash, Lines: []LineInput{line(inactive.ID, 1)}},
			code:  pkgerrors.CodeNotFound,
		},
		{
			name: "discount above total",
			input: SaleInput{
				CustomerID:    customer.ID,
				PaymentMethod: enums.PaymentMethodCash,
				DiscountCents: 1000,
				Lines:         []LineInput{line(product.ID, 1)},
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "line discount above line",
			input: SaleInput{
				CustomerID:    customer.ID,
				PaymentMethod: enums.PaymentMethodCash,
				Lines:         []LineInput{{ProductID: product.ID, Quantity: 1, DiscountCents: 101}},
			},
			code: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.BuildSale(context.Background(), conn, tc.input)
			require.Error(t, err)
			require.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestBuildPurchaseUsesCostPriceExclusive(t *testing.T) {
	b, conn := newTestBuilder(t)
	supplier := dbtest.SeedSupplier(t, conn, true)
	product := dbtest.SeedProduct(t, conn, 2000, dbtest.WithVAT("16", true))

	draft, err := b.BuildPurchase(context.Background(), conn, PurchaseInput{
		SupplierID:    supplier.ID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Lines:         []LineInput{line(product.ID, 3)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1000), draft.Lines[0].UnitCents)
	require.False(t, draft.Lines[0].VATInclusive)
	require.Equal(t, int64(480), draft.VATCents)
	require.Equal(t, int64(3480), draft.TotalCents)
}

func TestBuildPurchaseRejectsInactiveSupplier(t *testing.T) {
	b, conn := newTestBuilder(t)
	supplier := dbtest.SeedSupplier(t, conn, false)
	product := dbtest.SeedProduct(t, conn, 2000)

	_, err := b.BuildPurchase(context.Background(), conn, PurchaseInput{
		SupplierID:    supplier.ID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Lines:         []LineInput{line(product.ID, 1)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
