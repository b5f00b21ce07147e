package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgconn unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_sales_order_number"}, want: true},
		{name: "pgconn matching constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_sales_order_number"}, constraint: "ux_sales_order_number", want: true},
		{name: "pgconn other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_purchases_order_number"}, constraint: "ux_sales_order_number", want: false},
		{name: "pgconn check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
		{name: "wrapped pq unique", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "ux_payment_attempts_checkout"}), constraint: "ux_payment_attempts_checkout", want: true},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: sales.order_number"), want: true},
		{name: "sqlite unique with column", err: errors.New("UNIQUE constraint failed: sales.order_number"), constraint: "order_number", want: true},
		{name: "plain error", err: errors.New("connection reset"), want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}
