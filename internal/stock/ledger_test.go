package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

func TestReserve(t *testing.T) {
	ledger := NewLedger()
	conn := dbtest.Open(t)
	product := dbtest.SeedProduct(t, conn, 500, dbtest.WithStock(3))
	service := dbtest.SeedProduct(t, conn, 500, dbtest.AsService())

	require.NoError(t, ledger.Reserve(product, 3))
	require.NoError(t, ledger.Reserve(service, 1000))

	err := ledger.Reserve(product, 4)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	shortage, ok := pkgerrors.As(err).Details().(Shortage)
	require.True(t, ok)
	require.Equal(t, Shortage{ProductID: product.ID, ProductName: product.Name, Available: 3, Required: 4}, shortage)
}

func TestDecrementAndIncrement(t *testing.T) {
	conn := dbtest.Open(t)
	ledger := NewLedger()
	product := dbtest.SeedProduct(t, conn, 500, dbtest.WithStock(10))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(context.Background(), tx, product.ID, 4)
	}))
	require.Equal(t, 6, dbtest.StockOf(t, conn, product.ID))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Increment(context.Background(), tx, product.ID, 2)
	}))
	require.Equal(t, 8, dbtest.StockOf(t, conn, product.ID))
}

func TestDecrementShortageLeavesStock(t *testing.T) {
	conn := dbtest.Open(t)
	ledger := NewLedger()
	product := dbtest.SeedProduct(t, conn, 500, dbtest.WithStock(2))

	err := conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(context.Background(), tx, product.ID, 3)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	details := pkgerrors.As(err).Details().(Shortage)
	require.Equal(t, 2, details.Available)
	require.Equal(t, 3, details.Required)
	require.Equal(t, 2, dbtest.StockOf(t, conn, product.ID))
}

func TestServicesAreNotTracked(t *testing.T) {
	conn := dbtest.Open(t)
	ledger := NewLedger()
	service := dbtest.SeedProduct(t, conn, 500, dbtest.AsService())

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Decrement(context.Background(), tx, service.ID, 5); err != nil {
			return err
		}
		return ledger.Increment(context.Background(), tx, service.ID, 5)
	}))
	require.Equal(t, 0, dbtest.StockOf(t, conn, service.ID))
}

func TestUnknownProduct(t *testing.T) {
	conn := dbtest.Open(t)
	ledger := NewLedger()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(context.Background(), tx, uuid.New(), 1)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Increment(context.Background(), tx, uuid.New(), 1)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMutationsRequireTransaction(t *testing.T) {
	ledger := NewLedger()
	require.True(t, pkgerrors.IsCode(ledger.Decrement(context.Background(), nil, uuid.New(), 1), pkgerrors.CodeInternal))
	require.True(t, pkgerrors.IsCode(ledger.Increment(context.Background(), nil, uuid.New(), 1), pkgerrors.CodeInternal))

	conn := dbtest.Open(t)
	err := conn.Transaction(func(tx *gorm.DB) error {
		return ledger.Decrement(context.Background(), tx, uuid.New(), 0)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	conn := dbtest.Open(t)
	ledger := NewLedger()
	product := dbtest.SeedProduct(t, conn, 500, dbtest.WithStock(5))

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := conn.Transaction(func(tx *gorm.DB) error {
				return ledger.Decrement(context.Background(), tx, product.ID, 1)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, succeeded)
	require.Equal(t, buyers-5, short)
	require.Equal(t, 0, dbtest.StockOf(t, conn, product.ID))
}
