package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/sequence"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	conn    *gorm.DB
	svc     Service
	metrics *recordingMetrics
	actor   Actor
}

type recordingMetrics struct {
	mu        sync.Mutex
	committed []string
	rejected  []string
	retried   int
}

func (m *recordingMetrics) OrderCommitted(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, kind+":"+status)
}

func (m *recordingMetrics) OrderRejected(kind, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, kind+":"+code)
}

func (m *recordingMetrics) CommitRetried(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retried++
}

type fixtureOption func(*ServiceParams)

func withNumbers(n numberGenerator) fixtureOption {
	return func(p *ServiceParams) { p.Numbers = n }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.Open(t), opts...)
}

// newFixtureOn builds a second service over an existing database.
func newFixtureOn(t *testing.T, conn *gorm.DB, opts ...fixtureOption) *fixture {
	t.Helper()
	ledger := stock.NewLedger()
	metrics := &recordingMetrics{}

	params := ServiceParams{
		Repo:              NewRepository(conn),
		Builder:           NewBuilder(catalog.NewRepository(conn), ledger),
		Stock:             ledger,
		Numbers:           sequence.NewGenerator(time.UTC),
		TransactionRunner: db.Wrap(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:           metrics,
		Config:            config.OrdersConfig{SalePrefix: "INV", PurchasePrefix: "PO", CommitRetries: 3, CommitRetryBase: time.Millisecond},
		Clock:             dbtest.FixedClock(testNow),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	return &fixture{
		conn:    conn,
		svc:     svc,
		metrics: metrics,
		actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleCashier},
	}
}

func (f *fixture) outboxEvents(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Order("created_at ASC").Find(&events).Error)
	return events
}

func (f *fixture) countRows(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Table(table).Count(&n).Error)
	return n
}

func (f *fixture) sale(t *testing.T, customer uuid.UUID, method enums.PaymentMethod, lines ...LineInput) *models.Sale {
	t.Helper()
	sale, err := f.svc.CreateSale(context.Background(), SaleInput{
		CustomerID:    customer,
		Actor:         f.actor,
		PaymentMethod: method,
		Lines:         lines,
	})
	require.NoError(t, err)
	return sale
}

func line(productID uuid.UUID, qty int) LineInput {
	return LineInput{ProductID: productID, Quantity: qty}
}

func cents(v int64) *int64 { return &v }
