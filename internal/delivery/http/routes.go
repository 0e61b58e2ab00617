package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/config"
)

// SetupRouter builds the price API router.
//
//	GET  /health
//	POST /api/v1/prices/scrape
//	GET  /api/v1/prices/:ingredient
//
// Only /api/v1 is subject to the per-IP rate limit.
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(),
		LoggerMiddleware(),
		CORSMiddleware(cfg.Server.AllowedOrigins),
	)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	router.GET("/health", handler.HealthCheck)

	prices := router.Group("/api/v1/prices", RateLimitMiddleware(cfg.RateLimit.PerIP))
	prices.POST("/scrape", handler.ScrapePrices)
	prices.GET("/:ingredient", handler.GetPrices)

	return router
}
