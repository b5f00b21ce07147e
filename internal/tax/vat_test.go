package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

func TestVAT(t *testing.T) {
	sixteen := decimal.NewFromInt(16)

	require.True(t, VAT(decimal.NewFromInt(11600), sixteen, true).Equal(decimal.NewFromInt(1600)))
	require.True(t, VAT(decimal.NewFromInt(10000), sixteen, false).Equal(decimal.NewFromInt(1600)))
	require.True(t, VAT(decimal.NewFromInt(10000), decimal.Zero, false).IsZero())
}

func TestLine(t *testing.T) {
	sixteen := decimal.NewFromInt(16)
	cases := []struct {
		name      string
		subtotal  int64
		rate      decimal.Decimal
		inclusive bool
		want      LineAmounts
	}{
		{"inclusive exact", 11600, sixteen, true, LineAmounts{VATCents: 1600, NetCents: 10000, TotalCents: 11600}},
		{"exclusive exact", 10000, sixteen, false, LineAmounts{VATCents: 1600, NetCents: 10000, TotalCents: 11600}},
		// 1000 * 16 / 116 = 137.93
		{"inclusive rounds up", 1000, sixteen, true, LineAmounts{VATCents: 138, NetCents: 862, TotalCents: 1000}},
		// 3 * 50 / 100 = 1.5
		{"half rounds away from zero", 3, decimal.NewFromInt(50), false, LineAmounts{VATCents: 2, NetCents: 3, TotalCents: 5}},
		// 101 * 8 / 100 = 8.08
		{"exclusive rounds down", 101, decimal.NewFromInt(8), false, LineAmounts{VATCents: 8, NetCents: 101, TotalCents: 109}},
		{"zero rated", 999, decimal.Zero, true, LineAmounts{VATCents: 0, NetCents: 999, TotalCents: 999}},
		{"fractional rate", 10000, decimal.RequireFromString("7.5"), false, LineAmounts{VATCents: 750, NetCents: 10000, TotalCents: 10750}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Line(tc.subtotal, tc.rate, tc.inclusive)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, got.TotalCents, got.NetCents+got.VATCents)
		})
	}
}

func TestLineRejectsBadInput(t *testing.T) {
	_, err := Line(100, decimal.NewFromInt(-1), false)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Line(100, decimal.NewFromInt(101), false)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Line(-1, decimal.NewFromInt(16), false)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTotalsMatchSumOfRoundedLines(t *testing.T) {
	half := decimal.NewFromInt(50)
	var totals Totals
	var lineTotal int64
	for _, subtotal := range []int64{1, 1, 1} {
		line, err := Line(subtotal, half, false)
		require.NoError(t, err)
		totals.Add(line)
		lineTotal += line.TotalCents
	}

	// Each line rounds 0.5 up to 1; rounding the aggregate would give 2.
	require.Equal(t, int64(3), totals.VATCents)
	require.Equal(t, int64(3), totals.SubtotalCents)

	total, err := totals.Total(0)
	require.NoError(t, err)
	require.Equal(t, lineTotal, total)

	total, err = totals.Total(2)
	require.NoError(t, err)
	require.Equal(t, lineTotal-2, total)

	_, err = totals.Total(lineTotal + 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = totals.Total(-1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
