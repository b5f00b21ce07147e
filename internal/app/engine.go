package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/orders"
	"github.com/angelmondragon/retailops-backend/internal/payments"
	"github.com/angelmondragon/retailops-backend/internal/sequence"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/mpesa"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
)

// Engine bundles the order and payment services every binary shares.
type Engine struct {
	Orders   orders.Service
	Payments *payments.Service
	Metrics  *metrics.OrderMetrics
}

type EngineParams struct {
	Config     *config.Config
	DB         *db.Client
	Logger     *logger.Logger
	Registerer prometheus.Registerer
	// Gateway overrides the client built from Config.Mpesa.
	Gateway payments.Gateway
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Config == nil || params.DB == nil {
		return nil, fmt.Errorf("config and db client are required")
	}
	cfg := params.Config
	conn := params.DB.DB()

	loc, err := cfg.Orders.Location()
	if err != nil {
		return nil, fmt.Errorf("orders timezone: %w", err)
	}

	orderMetrics := metrics.NewOrderMetrics(params.Registerer)
	ledger := stock.NewLedger()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), params.Logger)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              orders.NewRepository(conn),
		Builder:           orders.NewBuilder(catalog.NewRepository(conn), ledger),
		Stock:             ledger,
		Numbers:           sequence.NewGenerator(loc),
		TransactionRunner: params.DB,
		Outbox:            outboxSvc,
		Metrics:           orderMetrics,
		Logger:            params.Logger,
		Config:            cfg.Orders,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	gateway := params.Gateway
	if gateway == nil {
		gateway, err = NewGateway(cfg.Mpesa, orderMetrics)
		if err != nil {
			return nil, err
		}
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(conn),
		Gateway:           gateway,
		Sales:             ordersSvc,
		TransactionRunner: params.DB,
		Outbox:            outboxSvc,
		Metrics:           orderMetrics,
		Logger:            params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}

	return &Engine{Orders: ordersSvc, Payments: paymentsSvc, Metrics: orderMetrics}, nil
}

// NewGateway builds the STK client, or a gateway that refuses every call when
// no credentials are configured so the rest of the service still boots.
func NewGateway(cfg config.MpesaConfig, observer mpesa.Observer) (payments.Gateway, error) {
	if !cfg.Enabled() {
		return disabledGateway{}, nil
	}
	client, err := mpesa.NewClient(cfg, mpesa.WithObserver(observer))
	if err != nil {
		return nil, fmt.Errorf("mpesa client: %w", err)
	}
	return client, nil
}

type disabledGateway struct{}

func (disabledGateway) Initiate(context.Context, mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "mobile money gateway is not configured")
}

func (disabledGateway) Query(context.Context, string) (*mpesa.QueryResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "mobile money gateway is not configured")
}
