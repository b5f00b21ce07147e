package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailops-backend/internal/payments"
	pkgAuth "github.com/angelmondragon/retailops-backend/pkg/auth"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

type fakePayments struct {
	olderThan time.Duration
	limit     int
	report    payments.ReconcileReport
	result    *payments.Result
	err       error
}

func (f *fakePayments) ReconcileStale(_ context.Context, olderThan time.Duration, limit int) (payments.ReconcileReport, error) {
	f.olderThan = olderThan
	f.limit = limit
	return f.report, f.err
}

func (f *fakePayments) Query(context.Context, string) (*payments.Result, error) {
	return f.result, f.err
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
	params  pagination.Params
}

func (f *fakeDLQ) List(_ context.Context, params pagination.Params) ([]models.OutboxDLQ, string, error) {
	f.params = params
	if params.Limit < len(f.entries) {
		return f.entries[:params.Limit], "next-page", nil
	}
	return f.entries, "", nil
}

func testDeps(out *bytes.Buffer, svc *fakePayments, dlq *fakeDLQ) (deps, *bool) {
	closed := false
	return deps{
		out: out,
		now: func() time.Time { return time.Now() },
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				App: config.AppConfig{LogLevel: "error"},
				JWT: config.JWTConfig{Secret: "opsctl-secret", Issuer: "retailops", ExpirationMinutes: 15},
			}, nil
		},
		payments: func(context.Context, *config.Config, *logger.Logger) (paymentOps, func(), error) {
			return svc, func() { closed = true }, nil
		},
		dlq: func(context.Context, *config.Config, *logger.Logger) (dlqLister, func(), error) {
			return dlq, func() { closed = true }, nil
		},
	}, &closed
}

func run(t *testing.T, d deps, args ...string) error {
	t.Helper()
	cmd := newRootCmd(d)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestReconcilePassesFlagsAndPrintsReport(t *testing.T) {
	out := &bytes.Buffer{}
	svc := &fakePayments{report: payments.ReconcileReport{Checked: 3, Resolved: 2, StillPending: 1}}
	d, closed := testDeps(out, svc, nil)

	require.NoError(t, run(t, d, "payments", "reconcile", "--older-than", "5m", "--limit", "7"))
	require.Equal(t, 5*time.Minute, svc.olderThan)
	require.Equal(t, 7, svc.limit)
	require.True(t, *closed)

	var report map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Equal(t, map[string]int{"checked": 3, "resolved": 2, "still_pending": 1, "failed": 0}, report)
}

func TestReconcileRejectsNonPositiveLimit(t *testing.T) {
	svc := &fakePayments{}
	d, _ := testDeps(&bytes.Buffer{}, svc, nil)

	err := run(t, d, "payments", "reconcile", "--limit", "0")
	require.Error(t, err)
	require.Zero(t, svc.limit)
}

func TestReconcileSurfacesServiceError(t *testing.T) {
	d, _ := testDeps(&bytes.Buffer{}, &fakePayments{err: errors.New("gateway down")}, nil)

	err := run(t, d, "payments", "reconcile")
	require.ErrorContains(t, err, "gateway down")
}

func TestQueryPrintsAttempt(t *testing.T) {
	out := &bytes.Buffer{}
	code := 0
	receipt := "QK12ABC"
	saleID := uuid.New()
	svc := &fakePayments{result: &payments.Result{
		Outcome: payments.OutcomeApplied,
		Attempt: &models.PaymentAttempt{
			CheckoutRequestID: "ws_CO_1",
			SaleID:            &saleID,
			Status:            enums.PaymentAttemptSuccess,
			AmountCents:       150000,
			ResultCode:        &code,
			TransactionID:     &receipt,
		},
	}}
	d, _ := testDeps(out, svc, nil)

	require.NoError(t, run(t, d, "payments", "query", "ws_CO_1"))

	var view map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	require.Equal(t, "ws_CO_1", view["checkout_request_id"])
	require.Equal(t, receipt, view["transaction_id"])
	require.Equal(t, saleID.String(), view["sale_id"])
	require.Equal(t, string(payments.OutcomeApplied), view["outcome"])
}

func TestQueryRequiresID(t *testing.T) {
	d, _ := testDeps(&bytes.Buffer{}, &fakePayments{}, nil)
	require.Error(t, run(t, d, "payments", "query"))
}

func TestTokenMintProducesParsableToken(t *testing.T) {
	out := &bytes.Buffer{}
	d, _ := testDeps(out, nil, nil)
	userID := uuid.New()

	require.NoError(t, run(t, d, "token", "mint", "--user", userID.String(), "--role", "manager"))

	cfg, err := d.loadConfig()
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(cfg.JWT, strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.ActorRoleManager, claims.Role)
}

func TestTokenMintRejectsUnknownRole(t *testing.T) {
	d, _ := testDeps(&bytes.Buffer{}, nil, nil)
	err := run(t, d, "token", "mint", "--user", uuid.NewString(), "--role", "owner")
	require.ErrorContains(t, err, "invalid actor role")
}

func TestDLQListPrintsRows(t *testing.T) {
	out := &bytes.Buffer{}
	msg := "publisher not configured"
	dlq := &fakeDLQ{entries: []models.OutboxDLQ{
		{
			EventID:       uuid.New(),
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &msg,
			AttemptCount:  1,
			FailedAt:      time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		},
		{EventID: uuid.New(), ErrorReason: enums.OutboxDLQReasonMaxAttempts},
	}}
	d, _ := testDeps(out, nil, dlq)

	require.NoError(t, run(t, d, "outbox", "dlq", "list", "--limit", "1", "--cursor", "abc"))
	require.Equal(t, pagination.Params{Limit: 1, Cursor: "abc"}, dlq.params)

	var page struct {
		Entries    []map[string]any `json:"entries"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	require.Equal(t, msg, page.Entries[0]["error"])
	require.Equal(t, "2026-10-01T08:00:00Z", page.Entries[0]["failed_at"])
	require.Equal(t, "next-page", page.NextCursor)
}

func TestMigrateCreateAndValidate(t *testing.T) {
	out := &bytes.Buffer{}
	d, _ := testDeps(out, nil, nil)
	d.now = func() time.Time { return time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC) }
	dir := t.TempDir()

	require.NoError(t, run(t, d, "migrate", "create", "add till sessions", "--dir", dir))
	require.Equal(t, filepath.Join(dir, "20261003120000_add_till_sessions.sql"), strings.TrimSpace(out.String()))

	out.Reset()
	require.NoError(t, run(t, d, "migrate", "validate", "--dir", dir))
	require.Contains(t, out.String(), dir)
}

func TestMigrateValidateEmbedded(t *testing.T) {
	out := &bytes.Buffer{}
	d, _ := testDeps(out, nil, nil)

	require.NoError(t, run(t, d, "migrate", "validate"))
	require.Contains(t, out.String(), "embedded")
}

func TestMigrateToRejectsNonNumericVersion(t *testing.T) {
	d, _ := testDeps(&bytes.Buffer{}, nil, nil)
	d.sqlDB = func(context.Context, *config.Config, *logger.Logger) (*sql.DB, func(), error) {
		t.Fatal("database should not be opened")
		return nil, nil, nil
	}
	require.ErrorContains(t, run(t, d, "migrate", "to", "latest"), "YYYYMMDDHHMMSS")
}
