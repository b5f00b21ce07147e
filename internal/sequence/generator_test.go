package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

var day = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func next(t *testing.T, conn *gorm.DB, gen *Generator, prefix string, at time.Time) string {
	t.Helper()
	var number string
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = gen.Next(context.Background(), tx, prefix, at)
		return err
	}))
	return number
}

func TestNextIncrementsPerPrefixAndDay(t *testing.T) {
	conn := dbtest.Open(t)
	gen := NewGenerator(nil)

	require.Equal(t, "INV-20261015-0001", next(t, conn, gen, "INV", day))
	require.Equal(t, "INV-20261015-0002", next(t, conn, gen, "INV", day))
	require.Equal(t, "PO-20261015-0001", next(t, conn, gen, "PO", day))
	require.Equal(t, "INV-20261016-0001", next(t, conn, gen, "INV", day.Add(24*time.Hour)))
}

func TestNextUsesConfiguredLocation(t *testing.T) {
	conn := dbtest.Open(t)
	nairobi := time.FixedZone("EAT", 3*60*60)
	gen := NewGenerator(nairobi)

	lateUTC := time.Date(2026, 10, 15, 22, 30, 0, 0, time.UTC)
	require.Equal(t, "INV-20261016-0001", next(t, conn, gen, "INV", lateUTC))
}

func TestRolledBackTransactionReleasesValue(t *testing.T) {
	conn := dbtest.Open(t)
	gen := NewGenerator(nil)
	boom := errors.New("insert failed")

	err := conn.Transaction(func(tx *gorm.DB) error {
		number, err := gen.Next(context.Background(), tx, "INV", day)
		require.NoError(t, err)
		require.Equal(t, "INV-20261015-0001", number)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Equal(t, "INV-20261015-0001", next(t, conn, gen, "INV", day))
}

func TestNextConcurrentCallersNeverCollide(t *testing.T) {
	conn := dbtest.Open(t)
	gen := NewGenerator(nil)

	const workers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := conn.Transaction(func(tx *gorm.DB) error {
				number, err := gen.Next(context.Background(), tx, "INV", day)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers[number] = struct{}{}
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers)
	require.Contains(t, numbers, "INV-20261015-0025")
}

func TestNextRejectsBadInput(t *testing.T) {
	conn := dbtest.Open(t)
	gen := NewGenerator(nil)

	_, err := gen.Next(context.Background(), nil, "INV", day)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	for _, prefix := range []string{"", "I", "inv", "TOOLONGPREFIX", "IN-V"} {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, err := gen.Next(context.Background(), tx, prefix, day)
			return err
		})
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "prefix %q: %v", prefix, err)
	}
}

func TestFormatWidensPastFourDigits(t *testing.T) {
	require.Equal(t, "PO-20261015-0042", Format("PO", "20261015", 42))
	require.Equal(t, "PO-20261015-10000", Format("PO", "20261015", 10000))
}

func TestParse(t *testing.T) {
	n, err := Parse("INV-20261015-0007")
	require.NoError(t, err)
	require.Equal(t, "INV", n.Prefix)
	require.Equal(t, int64(7), n.Value)
	require.True(t, n.Day.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)))

	for _, bad := range []string{"INV-20261015", "inv-20261015-0001", "INV-2026101-0001", "INV-20261015-01", "INV-20261015-0000", "INV-20261015-00x1"} {
		_, err := Parse(bad)
		require.Errorf(t, err, "expected %q to be rejected", bad)
	}
}
