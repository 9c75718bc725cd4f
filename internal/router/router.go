package router

import (
	"fmt"
	"strings"

	"github.com/bluewater-shop/storefront/internal/cache"
	"github.com/bluewater-shop/storefront/internal/config"
	adminhandlers "github.com/bluewater-shop/storefront/internal/http/handlers/admin"
	publichandlers "github.com/bluewater-shop/storefront/internal/http/handlers/public"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/metrics"
	"github.com/bluewater-shop/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the HTTP engine.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		Message:       "too many payment attempts, retry in %d seconds",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		tenants := apiV1.Group("/public/tenants/:tenant_id")
		{
			tenants.GET("/gateways", publicHandler.ListTenantGateways)
			tenants.POST("/payments", RateLimitMiddleware(cache.Client(), checkoutRule, KeyByTenantAndIP), publicHandler.CreatePayment)
		}

		// Providers call this; it must stay unauthenticated.
		apiV1.POST("/payments/webhook/:tenant_id/:gateway_code", publicHandler.PaymentWebhook)

		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(c.AdminTokenService), AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/gateways", adminHandler.ListGatewayInfo)
			admin.POST("/gateways/:gateway_code/validate", adminHandler.ValidateGatewayCredentials)

			tenant := admin.Group("/tenants/:tenant_id")
			tenant.Use(TenantScopeMiddleware())
			{
				tenant.GET("/gateways", adminHandler.ListTenantGateways)
				tenant.PUT("/gateways/:gateway_code", adminHandler.SaveTenantGateway)
				tenant.DELETE("/gateways/:gateway_code", adminHandler.DeleteTenantGateway)
				tenant.POST("/gateways/:gateway_code/default", adminHandler.SetDefaultTenantGateway)

				tenant.GET("/webhook-events", adminHandler.ListWebhookEvents)
				tenant.POST("/webhook-events/:id/replay", adminHandler.ReplayWebhookEvent)
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
