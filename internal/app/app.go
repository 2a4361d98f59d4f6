package app

import (
	"context"
	"fxledger/internal/adapters"
	"fxledger/internal/platform/db"
	httpserver "fxledger/internal/platform/http"
	"fxledger/internal/platform/logging"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxledger/internal/adapters/cache"
	"fxledger/internal/adapters/kafka"
	"fxledger/internal/adapters/ledger"
	"fxledger/internal/adapters/postgres"
	"fxledger/internal/api"
	"fxledger/internal/config"
	"fxledger/internal/rate"
	ratehandler "fxledger/internal/rate/handler"
	"fxledger/internal/syncer"
	synchandler "fxledger/internal/syncer/handler"

	"github.com/sirupsen/logrus"
)

type eventPublisher interface {
	adapters.EventPublisher
	Close() error
}

// Run wires the application components, starts HTTP server and scheduler
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	logging.Setup(appCfg.Logging)
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (DB connect, migrations)
	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// DB pool
	pool, err := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()
	logrus.Info("✅ Postgres connection successful")

	if err = db.Migrate(startupCtx, pool); err != nil {
		logrus.WithError(err).Error("Failed to apply migrations")
		return err
	}
	logrus.Info("✅ Migrations applied")

	// Base HTTP client (configurable timeout)
	httpTimeout := time.Duration(appCfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	baseHTTPClient := &http.Client{Timeout: httpTimeout}

	// Repositories
	rateRepo := postgres.NewRateRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	auditRepo := postgres.NewSyncAuditRepository(pool)

	// Events
	var events eventPublisher = kafka.NoopPublisher{}
	if appCfg.Kafka.Enabled {
		events = kafka.NewPublisher(appCfg.Kafka)
	}
	defer func() {
		if closeErr := events.Close(); closeErr != nil {
			logrus.Errorf("Event publisher close error: %v", closeErr)
		}
	}()

	healthCache, err := cache.NewSyncHealthCache(appCfg.Sync.HealthCacheSize)
	if err != nil {
		logrus.WithError(err).Error("Failed to create sync health cache")
		return err
	}
	defer healthCache.Close()

	// Remote ledger
	credentials := ledger.NewCredentialManager(appCfg.Ledger, baseHTTPClient, tenantRepo, events)
	ledgerClient := ledger.NewClient(baseHTTPClient, appCfg.Ledger, credentials)

	// Services
	rateService := rate.NewService(rateRepo, tenantRepo)
	rateValidator := rate.NewValidator(appCfg.Sync.SupportedCurrencies)
	orchestrator := syncer.NewOrchestrator(rateRepo, tenantRepo, ledgerClient, auditRepo, healthCache, events)
	fanOut := syncer.NewFanOut(tenantRepo, orchestrator, auditRepo, healthCache, appCfg.Sync.TenantConcurrencyLimit)
	healthService := syncer.NewHealthService(tenantRepo, auditRepo, healthCache)

	if appCfg.Scheduler.Enabled {
		scheduler, schedErr := syncer.NewScheduler(fanOut, appCfg.Scheduler)
		if schedErr != nil {
			logrus.WithError(schedErr).Error("Failed to create scheduler")
			return schedErr
		}
		// Ensure scheduler stops before DB pool closes
		defer func() {
			if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
				logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
			}
		}()
		// Start scheduler tied to root context
		if startErr := scheduler.Start(ctx); startErr != nil {
			logrus.WithError(startErr).Error("Failed to start scheduler")
			return startErr
		}
		logrus.Info("✅ Scheduler activation successful")
	}

	// Handlers and router
	rateHandler := ratehandler.NewRateHandler(rateValidator, rateService)
	syncHandler := synchandler.NewSyncHandler(rateValidator, orchestrator, fanOut, fanOut, healthService)
	router := api.NewRouter(rateHandler, syncHandler)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		// Cancel the root context to stop scheduler and other in-flight work
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}
