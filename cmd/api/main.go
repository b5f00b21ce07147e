package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/retailops-backend/api/routes"
	"github.com/angelmondragon/retailops-backend/internal/app"
	mpesawebhook "github.com/angelmondragon/retailops-backend/internal/webhooks/mpesa"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/migrate"
	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

const (
	serviceName       = "api"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	cfg, logg, err := app.Boot(serviceName)
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// listenAddr honours PORT, which hosting platforms inject, over the
// configured port.
func listenAddr(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + cfg.App.Port
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer app.CloseLogged(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer app.CloseLogged(logg, "redis", redisClient.Close)

	reg := prometheus.NewRegistry()
	engine, err := app.NewEngine(app.EngineParams{
		Config:     cfg,
		DB:         dbClient,
		Logger:     logg,
		Registerer: reg,
	})
	if err != nil {
		return fmt.Errorf("build order engine: %w", err)
	}
	if !cfg.Mpesa.Enabled() {
		logg.Warn(ctx, "mpesa credentials missing; stk push disabled")
	}

	guard, err := mpesawebhook.NewIdempotencyGuard(redisClient, cfg.Payments.CallbackGuardTTL, mpesawebhook.GuardScope)
	if err != nil {
		return fmt.Errorf("callback guard: %w", err)
	}
	callbacks, err := mpesawebhook.NewService(mpesawebhook.ServiceParams{
		Payments: engine.Payments,
		Guard:    guard,
		Metrics:  engine.Metrics,
		Logger:   logg,
	})
	if err != nil {
		return fmt.Errorf("callback service: %w", err)
	}

	server := &http.Server{
		Addr:              listenAddr(cfg),
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, reg,
			engine.Orders, engine.Payments, callbacks),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
