package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/licensegate/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter sets up the Gin router. Metrics are registered with reg and
// exposed on /metrics.
func SetupRouter(authService *service.AuthService, products ProductReader, reg *prometheus.Registry, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	metrics := NewMetrics(reg)
	router.Use(gin.Recovery(), RequestLogger(logger), Instrument(metrics))

	// Create handlers
	handlers := NewAuthHandlers(authService, metrics, logger)
	productHandlers := NewProductHandlers(products, logger)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/products/:id", productHandlers.Get)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
		api.GET("/protected/jokes", handlers.Jokes)
	}

	return router
}
