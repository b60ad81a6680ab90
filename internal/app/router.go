package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"fleet/internal/handler"
	"fleet/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	CaptainHandler *handler.CaptainHandler
	AdminHandler   *handler.AdminHandler
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
		// Captain routes.
		captains := v1.Group("/captains")
		{
			captains.POST("/register", deps.CaptainHandler.Register)
			captains.GET("/:id", deps.CaptainHandler.GetCaptain)
			captains.PUT("/:id/status", deps.CaptainHandler.SetStatus)
			captains.POST("/:id/location", deps.CaptainHandler.UpdateLocation)
			captains.GET("/:id/ledger", deps.CaptainHandler.GetLedger)
		}

		// Trip routes (captain-facing).
		trips := v1.Group("/trips")
		{
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.GET("/:id/progress", deps.TripHandler.GetTripProgress)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/progress", deps.TripHandler.CheckpointReached)
			trips.POST("/:id/emergency-terminate", deps.TripHandler.EmergencyTerminate)
		}

		// Admin routes.
		admin := v1.Group("/admin")
		{
			admin.POST("/trips", deps.AdminHandler.CreateTrip)
			admin.GET("/trips", deps.AdminHandler.ListTrips)
			admin.PUT("/trips/:id", deps.AdminHandler.UpdateTrip)
			admin.DELETE("/trips/:id", deps.AdminHandler.DeleteTrip)
			admin.POST("/trips/:id/cancel", deps.AdminHandler.CancelTrip)
			admin.POST("/trips/:id/force-close", deps.AdminHandler.ForceClose)
			admin.POST("/trips/:id/emergency-terminate", deps.AdminHandler.EmergencyTerminate)
			admin.GET("/trips/:id/activation-checks", deps.AdminHandler.ListActivationChecks)
		}
	}

	return router
}
