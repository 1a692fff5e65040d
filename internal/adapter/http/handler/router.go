package handler

import (
	"agentstore-payments/internal/adapter/http/middleware"
	redisStore "agentstore-payments/internal/adapter/storage/redis"
	"agentstore-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PurchaseSvc    ports.PurchaseService
	SettlementSvc  ports.SettlementService
	EntitlementSvc ports.EntitlementService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis + chain RPC)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	purchaseHandler := NewPurchaseHandler(deps.PurchaseSvc, deps.SettlementSvc)
	purchases := v1.Group("/purchases")
	{
		purchases.POST("", rl("purchases"), purchaseHandler.Purchase)
		purchases.POST("/gasless", rl("purchases_gasless"), purchaseHandler.Gasless)
	}

	entitlementHandler := NewEntitlementHandler(deps.EntitlementSvc)
	entitlements := v1.Group("/entitlements")
	{
		entitlements.POST("/validate", rl("entitlements_validate"), entitlementHandler.Validate)
	}

	return r
}
