package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/jerrymcma/rideglad-sub000/internal/handler"
	"github.com/jerrymcma/rideglad-sub000/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	PricingHandler *handler.PricingHandler
	DriverHandler  *handler.DriverHandler
	RatingHandler  *handler.RatingHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip lifecycle routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/match", deps.TripHandler.MatchTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.PATCH("/:id/status", deps.TripHandler.UpdateStatus)
			trips.POST("/:id/ratings", deps.RatingHandler.CreateRating)
			trips.GET("/:id/ratings", deps.RatingHandler.ListRatings)
		}

		// Rider routes.
		riders := v1.Group("/riders")
		{
			riders.GET("/:id/trips/active", deps.TripHandler.GetActiveTrip)
		}

		// Pricing routes.
		pricing := v1.Group("/pricing")
		{
			pricing.POST("/calculate", deps.PricingHandler.Calculate)
			pricing.GET("/plans", deps.PricingHandler.ListPlans)
			pricing.POST("/promos/validate", deps.PricingHandler.ValidatePromo)
		}

		// Driver presence routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.POST("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.POST("/:id/online", deps.DriverHandler.GoOnline)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
		}
	}

	return router
}
