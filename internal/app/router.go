package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CustomerHandler   *handler.CustomerHandler
	JobHandler        *handler.JobHandler
	TechnicianHandler *handler.TechnicianHandler
	WalletHandler     *handler.WalletHandler
	PaymentHandler    *handler.PaymentHandler
	LocationHandler   *handler.LocationHandler
	WSHandler         *handler.WSHandler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
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

	if deps.RedisClient != nil {
		router.Use(middleware.Idempotency(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Realtime channel.
	router.GET("/ws", deps.WSHandler.Serve)

	// Live-location HTTP fallback for clients without a socket.
	driver := router.Group("/driver")
	{
		driver.POST("/location", deps.LocationHandler.Update)
		driver.GET("/location/:jobID", deps.LocationHandler.Get)
		driver.DELETE("/location/:jobID", deps.LocationHandler.Remove)
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Customer routes.
		customers := v1.Group("/customers")
		{
			customers.POST("", deps.CustomerHandler.Register)
			customers.GET("", deps.CustomerHandler.GetAll)
			customers.GET("/:id", deps.CustomerHandler.Get)
		}

		// Job routes.
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", deps.JobHandler.CreateJob)
			jobs.GET("", deps.JobHandler.GetAll)
			jobs.GET("/open", deps.JobHandler.GetOpen)
			jobs.GET("/:id", deps.JobHandler.GetJob)
			jobs.POST("/:id/accept", deps.JobHandler.Accept)
			jobs.POST("/:id/verify-arrival", deps.JobHandler.VerifyArrival)
			jobs.POST("/:id/start", deps.JobHandler.StartService)
			jobs.POST("/:id/end", deps.JobHandler.EndService)
			jobs.POST("/:id/complete", deps.JobHandler.Complete)
			jobs.POST("/:id/cancel", deps.JobHandler.Cancel)
		}

		// Technician routes.
		technicians := v1.Group("/technicians")
		{
			technicians.GET("", deps.TechnicianHandler.GetAll)
			technicians.GET("/:id", deps.TechnicianHandler.GetProfile)
			technicians.PUT("/:id", deps.TechnicianHandler.UpdateProfile)
			technicians.POST("/:id/online", deps.TechnicianHandler.GoOnline)
			technicians.POST("/:id/offline", deps.TechnicianHandler.GoOffline)
			technicians.POST("/:id/location", deps.TechnicianHandler.UpdateLocation)
			technicians.GET("/:id/jobs", deps.TechnicianHandler.GetActiveJobs)
			technicians.GET("/:id/wallet", deps.WalletHandler.GetWallet)
			technicians.GET("/:id/transactions", deps.WalletHandler.GetTransactions)
			technicians.GET("/:id/withdrawals", deps.WalletHandler.GetWithdrawals)
			technicians.POST("/:id/commission/pay", deps.WalletHandler.PayCommission)
		}

		// Nearby lookup lives outside /technicians to keep :id wildcard clean.
		v1.GET("/nearby/technicians", deps.TechnicianHandler.GetNearby)

		// Withdrawal routes.
		withdrawals := v1.Group("/withdrawals")
		{
			withdrawals.POST("", deps.WalletHandler.RequestWithdrawal)
			withdrawals.POST("/:id/process", deps.WalletHandler.ProcessWithdrawal)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/order", deps.PaymentHandler.CreateOrder)
			payments.POST("/confirm", deps.PaymentHandler.ConfirmPayment)
		}
	}

	return router
}
