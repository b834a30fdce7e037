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

	"github.com/jerrymcma/rideglad-sub000/internal/app"
	"github.com/jerrymcma/rideglad-sub000/internal/config"
	"github.com/jerrymcma/rideglad-sub000/internal/handler"
	internalRedis "github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/repository/postgres"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
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

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, sweeper, catalogService := wireServer(db, redisClient, nrApp, cfg)

	if err := catalogService.EnsureDefaultPlans(ctx); err != nil {
		log.Fatalf("failed to seed pricing plans: %v", err)
	}

	// Background sweep for stale trip requests. Cancelled on shutdown.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweeper.Run(sweepCtx)

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
	sweepCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server, the
// background sweeper and the catalog service for startup seeding.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.SweeperService, *service.CatalogService) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	promoRepo := postgres.NewPromoRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	ratingRepo := postgres.NewRatingRepository(db)

	// Initialize services.
	notifier := service.NewRegistryNotifier(locationStore)
	catalogService := service.NewCatalogService(planRepo, promoRepo, cacheStore)
	pricingService := service.NewPricingService(catalogService)
	tripService := service.NewTripService(db, tripRepo, driverRepo, promoRepo, pricingService, notifier, cfg.Trip.RequestTimeout)
	sweeperService := service.NewSweeperService(tripRepo, lockStore, notifier, cfg.Trip.RequestTimeout, cfg.Trip.SweepInterval)
	driverService := service.NewDriverService(driverRepo, vehicleRepo, locationStore, tripService)
	ratingService := service.NewRatingService(ratingRepo, tripService)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripService)
	pricingHandler := handler.NewPricingHandler(pricingService, catalogService)
	driverHandler := handler.NewDriverHandler(driverService)
	ratingHandler := handler.NewRatingHandler(ratingService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    tripHandler,
		PricingHandler: pricingHandler,
		DriverHandler:  driverHandler,
		RatingHandler:  ratingHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sweeperService, catalogService
}
