// Package routes wires middlewares, services and HTTP routes onto the Fiber app.
package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/audit"
	"github.com/nile-pay/nile_pay/internal/banking"
	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/directory"
	"github.com/nile-pay/nile_pay/internal/fx"
	"github.com/nile-pay/nile_pay/internal/gateway"
	"github.com/nile-pay/nile_pay/internal/middleware"
	"github.com/nile-pay/nile_pay/internal/transfer"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB, Cache and
// Audit may be nil; the wiring falls back to in-memory or log-based
// replacements so the service stays runnable in development.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Audit  audit.Recorder
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store wallet.Store
	var rates fx.RateSource
	var dir directory.Directory
	if d.DB != nil {
		store = wallet.NewPostgresStore(d.DB, d.Cfg.HouseOwnerID)
		rates = fx.NewPostgresRates(d.DB)
		dir = directory.NewPostgresDirectory(d.DB)
	} else {
		store = wallet.NewInMemory(d.Cfg.HouseOwnerID)
		rates = devRates()
		dir = directory.NewMemory()
	}

	auditor := d.Audit
	if auditor == nil {
		auditor = audit.NewLoggerRecorder(d.Logger)
	}

	gw := gateway.NewSimulator()
	orchestrator := transfer.NewOrchestrator(store, gw, d.Logger)
	converter := fx.NewConverter(store, rates, d.Logger)

	svc := banking.NewService(store, orchestrator, converter, dir, auditor, d.Logger, d.Cfg.RetryAttempts, d.Cfg.RetryDelay)
	handler := banking.NewHandler(svc)

	api := app.Group("/api/v1")
	RegisterBankingRoutes(api, handler)

	return nil
}

// devRates seeds a static rate table so conversions work without a database.
func devRates() *fx.MemoryRates {
	rates := fx.NewMemoryRates()
	rates.Set("USD", "EUR", decimal.RequireFromString("0.85"))
	rates.Set("EUR", "USD", decimal.RequireFromString("1.18"))
	rates.Set("USD", "NGN", decimal.RequireFromString("1540"))
	rates.Set("NGN", "USD", decimal.RequireFromString("0.00065"))
	return rates
}
