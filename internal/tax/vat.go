// Package tax computes VAT on integer minor-unit amounts.
package tax

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)
	maxRate = hundred
)

// VAT returns the unrounded tax contained in (inclusive) or added to
// (exclusive) amount at rate percent.
func VAT(amount, rate decimal.Decimal, inclusive bool) decimal.Decimal {
	if rate.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	if inclusive {
		return amount.Mul(rate).Div(hundred.Add(rate))
	}
	return amount.Mul(rate).Div(hundred)
}

// LineAmounts are the rounded figures of one order line in minor units.
// NetCents + VATCents == TotalCents always holds.
type LineAmounts struct {
	VATCents   int64
	NetCents   int64
	TotalCents int64
}

// Line prices a line whose discounted subtotal is subtotalCents. VAT is
// rounded half away from zero to a whole minor unit once, here.
func Line(subtotalCents int64, rate decimal.Decimal, inclusive bool) (LineAmounts, error) {
	if err := ValidateRate(rate); err != nil {
		return LineAmounts{}, err
	}
	if subtotalCents < 0 {
		return LineAmounts{}, pkgerrors.New(pkgerrors.CodeValidation, "line subtotal must not be negative").
			WithDetails(map[string]any{"subtotal_cents": subtotalCents})
	}

	vat := roundHalfAwayFromZero(VAT(decimal.NewFromInt(subtotalCents), rate, inclusive))
	if inclusive {
		return LineAmounts{VATCents: vat, NetCents: subtotalCents - vat, TotalCents: subtotalCents}, nil
	}
	return LineAmounts{VATCents: vat, NetCents: subtotalCents, TotalCents: subtotalCents + vat}, nil
}

// ValidateRate accepts percentages in [0, 100].
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vat rate must be between 0 and 100").
			WithDetails(map[string]any{"vat_rate": rate.String()})
	}
	return nil
}

// Totals accumulates rounded line figures into header figures.
type Totals struct {
	SubtotalCents int64
	VATCents      int64
}

func (t *Totals) Add(line LineAmounts) {
	t.SubtotalCents += line.NetCents
	t.VATCents += line.VATCents
}

// Total applies the header discount. A negative result is a validation error.
func (t Totals) Total(discountCents int64) (int64, error) {
	if discountCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}
	total := t.SubtotalCents + t.VATCents - discountCents
	if total < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total").
			WithDetails(map[string]any{
				"subtotal_cents": t.SubtotalCents,
				"vat_cents":      t.VATCents,
				"discount_cents": discountCents,
			})
	}
	return total, nil
}

// decimal.Round rounds half away from zero; IntPart truncates the result.
func roundHalfAwayFromZero(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
