package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voucherbay/voucherbay-backend/api/routes"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	"github.com/voucherbay/voucherbay-backend/internal/auth"
	"github.com/voucherbay/voucherbay-backend/internal/fraud"
	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/payouts"
	"github.com/voucherbay/voucherbay-backend/internal/purchase"
	"github.com/voucherbay/voucherbay-backend/internal/reveal"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/metrics"
	"github.com/voucherbay/voucherbay-backend/pkg/migrate"
	"github.com/voucherbay/voucherbay-backend/pkg/redis"
	"github.com/voucherbay/voucherbay-backend/pkg/vault"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	codeVault, err := vault.New(cfg.Vault)
	if err != nil {
		logg.Error(context.Background(), "failed to create vault", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	stats := metrics.NewMarketplaceMetrics(registry)

	gormDB := dbClient.DB()
	vouchersRepo := vouchers.NewRepository(gormDB)
	transactionsRepo := transactions.NewRepository(gormDB)
	payoutsRepo := payouts.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)
	usersRepo := auth.NewRepository(gormDB)

	notificationsService, err := notifications.NewService(notificationsRepo, logg)
	requireService(logg, "notifications", err)

	auditService, err := audit.NewService(gormDB)
	requireService(logg, "audit", err)

	authService, err := auth.NewService(usersRepo, cfg.JWT, logg)
	requireService(logg, "auth", err)

	vouchersService, err := vouchers.NewService(vouchersRepo, codeVault, notificationsService, cfg.Fees, logg)
	requireService(logg, "vouchers", err)

	riskGate, err := fraud.NewChecker(cfg.Fraud, transactionsRepo)
	requireService(logg, "fraud checker", err)

	purchaseService, err := purchase.NewService(vouchersRepo, transactionsRepo, riskGate, notificationsService, dbClient, stats, logg)
	requireService(logg, "purchase", err)

	payoutsService, err := payouts.NewService(payoutsRepo, notificationsService, dbClient, stats, logg)
	requireService(logg, "payouts", err)

	transactionsService, err := transactions.NewService(transactionsRepo, vouchersRepo, payoutsService, notificationsService, dbClient, logg)
	requireService(logg, "transactions", err)

	revealService, err := reveal.NewService(transactionsRepo, vouchersRepo, codeVault, reveal.NoopScheduler{}, stats, logg)
	requireService(logg, "reveal", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Auth:          authService,
			Vouchers:      vouchersService,
			Purchase:      purchaseService,
			Transactions:  transactionsService,
			Payouts:       payoutsService,
			Reveal:        revealService,
			Notifications: notificationsService,
			Audit:         auditService,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
