package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/retailops-backend/internal/app"
	"github.com/angelmondragon/retailops-backend/internal/payments"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

var version = "0.1.0"

type paymentOps interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (payments.ReconcileReport, error)
	Query(ctx context.Context, checkoutRequestID string) (*payments.Result, error)
}

type dlqLister interface {
	List(ctx context.Context, params pagination.Params) ([]models.OutboxDLQ, string, error)
}

// deps holds everything a command needs so tests can swap the database
// backed pieces for fakes.
type deps struct {
	out        io.Writer
	now        func() time.Time
	loadConfig func() (*config.Config, error)
	payments   func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (paymentOps, func(), error)
	dlq        func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (dlqLister, func(), error)
	sqlDB      func(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*sql.DB, func(), error)
}

func defaultDeps() deps {
	return deps{
		out:        os.Stdout,
		now:        time.Now,
		loadConfig: config.Load,
		payments:   openPayments,
		dlq:        openDLQ,
		sqlDB:      openSQL,
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "opsctl",
		Short: "Operator tooling for the retail order engine",
		Long: `opsctl runs one-off maintenance tasks against the order engine's
database and payment gateway: reconciling stuck STK pushes, querying a
single attempt, minting staff access tokens, inspecting dead-lettered
outbox events and managing schema migrations.

Configuration is read from the same RETAILOPS_* environment as the API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.out)

	root.AddCommand(newPaymentsCmd(d), newTokenCmd(d), newOutboxCmd(d), newMigrateCmd(d))
	return root
}

func commandLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "opsctl",
		Level:       cfg.App.LogLevel,
		Output:      os.Stderr,
	})
}

func openPayments(ctx context.Context, cfg *config.Config, logg *logger.Logger) (paymentOps, func(), error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeDB := func() { _ = dbClient.Close() }

	engine, err := app.NewEngine(app.EngineParams{
		Config:     cfg,
		DB:         dbClient,
		Logger:     logg,
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return engine.Payments, closeDB, nil
}

func openDLQ(ctx context.Context, cfg *config.Config, logg *logger.Logger) (dlqLister, func(), error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return outbox.NewDLQRepository(dbClient.DB()), func() { _ = dbClient.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
