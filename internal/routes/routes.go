package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/arvault/arvault/internal/accounts"
	"github.com/arvault/arvault/internal/config"
	"github.com/arvault/arvault/internal/exchange"
	"github.com/arvault/arvault/internal/metrics"
	"github.com/arvault/arvault/internal/middleware"
	"github.com/arvault/arvault/internal/notification"
	"github.com/arvault/arvault/internal/rates"
	"github.com/arvault/arvault/internal/seed"
	"github.com/arvault/arvault/internal/transfer"
	"github.com/arvault/arvault/internal/txlog"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
	// Transfers overrides the simulator built from config (tests).
	Transfers transfer.Transferer
}

// Backends holds the storage selected for this process.
type Backends struct {
	Accounts accounts.Store
	Rates    rates.Table
	Log      txlog.Log
}

// NewBackends picks Postgres for accounts and the log when a pool is given,
// Redis for rates when a client is given, and in-memory stores otherwise.
func NewBackends(d Deps) Backends {
	b := Backends{
		Accounts: accounts.NewMemoryStore(),
		Rates:    rates.NewMemoryTable(d.Cfg.Currencies),
		Log:      txlog.NewMemoryLog(),
	}
	if d.DB != nil {
		b.Accounts = accounts.NewPostgresStore(d.DB)
		b.Log = txlog.NewPostgresLog(d.DB)
	}
	if d.Cache != nil {
		b.Rates = rates.NewRedisTable(d.Cache, d.Cfg.Currencies)
	}
	return b
}

// Setup configures middlewares, seeds the backends when a seed file is
// configured and registers every route.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger, "/healthz", "/metrics"))

	backends := NewBackends(d)
	if d.Cfg.SeedFile != "" {
		st, err := seed.Load(d.Cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, st, d.Cfg.Currencies, backends.Accounts, backends.Rates, d.Logger); err != nil {
			return err
		}
	}

	recorder, err := metrics.NewPrometheus(d.Cfg.MetricsNamespace, d.Registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	transfers := d.Transfers
	if transfers == nil {
		transfers = transfer.NewSimulator(d.Cfg.TransferMinDelay, d.Cfg.TransferMaxDelay)
	}

	svc, err := exchange.NewService(exchange.Deps{
		Accounts:  backends.Accounts,
		Rates:     backends.Rates,
		Log:       backends.Log,
		Transfers: transfers,
		Metrics:   recorder,
		Notifier:  notification.NewLoggerNotifier(d.Logger),
		Logger:    d.Logger,
	})
	if err != nil {
		return err
	}
	handler := exchange.NewHandler(svc)

	var submit []fiber.Handler
	if d.Cache != nil {
		submit = append(submit, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	// Bare paths are kept for existing clients; /api/v1 is the versioned surface.
	RegisterExchangeRoutes(app, handler, submit...)
	RegisterExchangeRoutes(app.Group("/api/v1"), handler, submit...)

	return nil
}
