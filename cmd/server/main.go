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

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/relay"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/ws"
)

func main() {
	// Load .env if present; real environments set variables directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

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

	// Live-location relay with background staleness sweep.
	locationRelay := relay.New(relay.Options{
		StaleThreshold: cfg.Dispatch.LocationStaleThreshold,
		SweepInterval:  cfg.Dispatch.LocationSweepInterval,
	})
	locationRelay.Start()
	defer locationRelay.Stop()

	// Realtime hub.
	hub := ws.NewHub(locationRelay)
	go hub.Run()
	defer hub.Stop()

	// Wire dependencies.
	server, technicianService := wireServer(db, redisClient, nrApp, cfg, locationRelay, hub)

	// Daily stats reset at midnight.
	go runDailyReset(technicianService)

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
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
	locationRelay *relay.Relay,
	hub *ws.Hub,
) (*http.Server, *service.TechnicianService) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	customerRepo := postgres.NewCustomerRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	technicianRepo := postgres.NewTechnicianRepository(db)
	txnRepo := postgres.NewTransactionRepository(db)
	withdrawalRepo := postgres.NewWithdrawalRepository(db)

	// Initialize services.
	ledgerService := service.NewLedgerService(
		technicianRepo, txnRepo, withdrawalRepo, lockStore,
		cfg.Dispatch.CommissionRate, cfg.Dispatch.MinWithdrawal,
	)
	jobService := service.NewJobService(
		db, jobRepo, technicianRepo, txnRepo,
		ledgerService, hub, locationRelay, cacheStore,
	)
	technicianService := service.NewTechnicianService(technicianRepo, cacheStore, locationStore)
	customerService := service.NewCustomerService(customerRepo)
	oracle := service.NewSandboxOracle()
	paymentService := service.NewPaymentService(oracle, jobService)

	// Initialize handlers.
	customerHandler := handler.NewCustomerHandler(customerService)
	jobHandler := handler.NewJobHandler(jobService, service.NewReceiptService())
	technicianHandler := handler.NewTechnicianHandler(technicianService, jobService)
	walletHandler := handler.NewWalletHandler(ledgerService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	locationHandler := handler.NewLocationHandler(locationRelay, hub)
	wsHandler := handler.NewWSHandler(hub)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		CustomerHandler:   customerHandler,
		JobHandler:        jobHandler,
		TechnicianHandler: technicianHandler,
		WalletHandler:     walletHandler,
		PaymentHandler:    paymentHandler,
		LocationHandler:   locationHandler,
		WSHandler:         wsHandler,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, technicianService
}

// runDailyReset zeroes per-day technician stats at each local midnight.
func runDailyReset(technicians *service.TechnicianService) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
		time.Sleep(time.Until(next))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := technicians.ResetDailyStats(ctx); err != nil {
			log.Printf("daily stats reset failed: %v", err)
		} else {
			log.Println("Daily stats reset")
		}
		cancel()
	}
}
