package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"fleet/internal/app"
	"fleet/internal/config"
	"fleet/internal/handler"
	internalRedis "fleet/internal/redis"
	"fleet/internal/repository/postgres"
	"fleet/internal/service"
	"fleet/internal/worker"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, workers := wireServer(db, redisClient, nrApp, cfg)

	// Start background workers.
	for _, w := range workers {
		w.Start()
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	// Stop the workers first so no tick is abandoned mid-write, then close
	// the HTTP listener.
	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// lifecycleWorker is the start/stop contract shared by the polling workers.
type lifecycleWorker interface {
	Start()
	Stop()
}

// wireServer wires all dependencies and returns the HTTP server plus the
// background workers to run alongside it.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, []lifecycleWorker) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	txManager := postgres.NewTxManager(db)
	tripRepo := postgres.NewScheduledTripRepository(db)
	progressRepo := postgres.NewTripProgressRepository(db)
	captainRepo := postgres.NewCaptainRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	checkRepo := postgres.NewActivationCheckRepository(db)
	usageRepo := postgres.NewEmergencyUsageRepository(db)

	// Initialize services.
	var sender service.PushSender = &service.LogPushSender{}
	if cfg.Push.Endpoint != "" {
		sender = service.NewExpoPushSender(cfg.Push)
	}
	notificationService := service.NewNotificationService(sender)
	activationService := service.NewActivationService(tripRepo, captainRepo, checkRepo, cfg.Activation)
	financeService := service.NewFinanceService(txManager, tripRepo, ledgerRepo)
	tripService := service.NewTripService(txManager, tripRepo, progressRepo, captainRepo, usageRepo, lockStore, activationService, financeService, notificationService)
	captainService := service.NewCaptainService(captainRepo, tripRepo, progressRepo, ledgerRepo, locationStore, cacheStore, activationService, notificationService)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripService)
	captainHandler := handler.NewCaptainHandler(captainService)
	adminHandler := handler.NewAdminHandler(tripService, checkRepo)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    tripHandler,
		CaptainHandler: captainHandler,
		AdminHandler:   adminHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Background workers.
	activationWorker := worker.NewActivationWorker(
		cfg.Workers.ActivationInterval,
		tripRepo, captainRepo, locationStore, cacheStore,
		activationService, notificationService,
	)
	overdueWorker := worker.NewOverdueWorker(cfg.Workers.OverdueInterval, tripRepo, progressRepo)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, []lifecycleWorker{activationWorker, overdueWorker}
}
