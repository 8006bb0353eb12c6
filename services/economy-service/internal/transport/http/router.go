package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/middleware"
)

// NewRouter wires the public API. limiter may be nil to disable rate limiting.
func NewRouter(
	economyHandler *EconomyHandler,
	tokens middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	allowedOrigins []string,
	log logrus.FieldLogger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log), middleware.Metrics())

	config := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		config.AllowOrigins = allowedOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limit := func(key string, n int, window time.Duration) gin.HandlerFunc {
		if limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return limiter.Limit(key, n, window)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/shop/items", economyHandler.ListShopItems)
		api.GET("/achievements", economyHandler.ListAchievements)

		user := api.Group("")
		user.Use(middleware.AuthMiddleware(tokens))
		{
			user.POST("/profile", economyHandler.CreateProfile)
			user.GET("/profile", economyHandler.GetProfile)
			user.GET("/transactions", economyHandler.ListTransactions)
			user.POST("/shop/purchase", limit("purchase", 10, time.Minute), economyHandler.Purchase)
			user.POST("/inventory/use", limit("use_item", 30, time.Minute), economyHandler.UseItem)
			user.POST("/actions", limit("actions", 120, time.Minute), economyHandler.RecordAction)
			user.POST("/achievements/evaluate", economyHandler.Evaluate)
		}
	}

	return r
}
