package app

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the primary store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Application holds all application dependencies and services
type Application struct {
	config   *config.Config
	logger   *logger.Logger
	store    HealthChecker
	services *Services
	metrics  *metrics.Registry
	jwt      middleware.JWTConfig
	router   *gin.Engine
}

// New creates a new Application instance
func New(cfg *config.Config, log *logger.Logger, svc *Services, m *metrics.Registry, store HealthChecker) *Application {
	app := &Application{
		config:   cfg,
		logger:   log.WithComponent("http"),
		store:    store,
		services: svc,
		metrics:  m,
		jwt: middleware.JWTConfig{
			Secret:           cfg.JWT.Secret,
			Issuer:           cfg.JWT.Issuer,
			AccessTokenTTL:   cfg.JWT.AccessTokenTTL,
			RefreshThreshold: cfg.JWT.RefreshThreshold,
		},
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app.router = gin.New()

	app.router.Use(middleware.RequestID())
	app.router.Use(middleware.RecoveryMiddleware(app.logger))
	app.router.Use(middleware.LoggerMiddleware(app.logger))
	app.router.Use(app.corsMiddleware())
	if cfg.Metrics.Enabled && m != nil {
		app.router.Use(middleware.Metrics(m))
	}

	app.setupRoutes()

	return app
}

// Router returns the HTTP handler
func (a *Application) Router() http.Handler {
	return a.router
}

// setupRoutes configures all application routes
func (a *Application) setupRoutes() {
	// Health check endpoints
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/ready", a.readinessCheck)
	if a.config.Metrics.Enabled && a.metrics != nil {
		a.router.GET(a.config.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}

	v1 := a.router.Group("/api/v1")
	{
		v1.GET("/info", a.apiInfo)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", a.login)
			auth.GET("/me", middleware.JWTMiddleware(a.jwt), a.me)
			auth.POST("/refresh", middleware.JWTMiddleware(a.jwt), a.refreshToken)
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTMiddleware(a.jwt))

		// Order management
		orders := protected.Group("/orders")
		{
			orders.GET("", a.listOrders)
			orders.POST("", a.createOrder)
			orders.GET("/duplicates", a.findDuplicates)
			orders.POST("/refresh", a.refreshOrders)
			orders.GET("/:id", a.getOrder)
			orders.PATCH("/:id/status", a.updateOrderStatus)
			orders.PATCH("/:id/payment", a.updateOrderPayment)
			orders.DELETE("/:id", a.deleteOrder)
		}

		protected.GET("/customers", a.listCustomers)

		// Product catalogue and stock
		products := protected.Group("/products")
		{
			products.GET("", a.listProducts)
			products.POST("", a.createProduct)
			products.GET("/:id", a.getProduct)
			products.PUT("/:id", a.updateProduct)
			products.DELETE("/:id", middleware.RequireRole("admin"), a.deleteProduct)
			products.POST("/:id/stock", middleware.RequireRole("admin"), a.adjustStock)
		}

		protected.GET("/exports/manifest", a.exportManifest)
	}
}

// Middleware

func (a *Application) corsMiddleware() gin.HandlerFunc {
	allowed := a.config.CORS.AllowedOrigins
	methods := strings.Join(a.config.CORS.AllowedMethods, ", ")
	headers := strings.Join(a.config.CORS.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (slices.Contains(allowed, "*") || slices.Contains(allowed, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, "+middleware.RequestIDHeader)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
