// Package sequence issues human-readable order numbers of the form
// PREFIX-YYYYMMDD-NNNN from a per (prefix, day) counter row.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const (
	dayLayout = "20060102"
	minDigits = 4
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,8}$`)

const upsertCounterSQL = `
INSERT INTO order_sequences (prefix, seq_date, last_value)
VALUES (?, ?, 1)
ON CONFLICT (prefix, seq_date)
DO UPDATE SET last_value = order_sequences.last_value + 1
RETURNING last_value`

// Generator hands out order numbers. The counter row is locked by the upsert
// for the rest of the caller's transaction, so concurrent creators serialize
// and a rolled back transaction releases its value.
type Generator struct {
	loc *time.Location
}

// NewGenerator scopes days to loc. A nil location means UTC.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{loc: loc}
}

// Next increments the counter for (prefix, day of at) on tx and returns the
// formatted number.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order number requires a transaction")
	}
	if !prefixPattern.MatchString(prefix) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order number prefix").
			WithDetails(map[string]any{"prefix": prefix})
	}

	day := at.In(g.loc).Format(dayLayout)
	var value int64
	if err := tx.WithContext(ctx).Raw(upsertCounterSQL, prefix, day).Scan(&value).Error; err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order sequence")
	}
	if value <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order sequence returned no value")
	}
	return Format(prefix, day, value), nil
}

// Format renders an order number. Sequences above 9999 widen rather than wrap.
func Format(prefix, day string, value int64) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, day, minDigits, value)
}

// Number is a parsed order number.
type Number struct {
	Prefix string
	Day    time.Time
	Value  int64
}

var errMalformed = errors.New("malformed order number")

// Parse splits an order number into its parts.
func Parse(number string) (Number, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return Number{}, errMalformed
	}
	if !prefixPattern.MatchString(parts[0]) {
		return Number{}, fmt.Errorf("%w: prefix %q", errMalformed, parts[0])
	}
	day, err := time.Parse(dayLayout, parts[1])
	if err != nil {
		return Number{}, fmt.Errorf("%w: day %q", errMalformed, parts[1])
	}
	if len(parts[2]) < minDigits {
		return Number{}, fmt.Errorf("%w: sequence %q", errMalformed, parts[2])
	}
	value, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || value <= 0 {
		return Number{}, fmt.Errorf("%w: sequence %q", errMalformed, parts[2])
	}
	return Number{Prefix: parts[0], Day: day, Value: value}, nil
}
