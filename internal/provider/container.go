package provider

import (
	"github.com/bluewater-shop/storefront/internal/authz"
	"github.com/bluewater-shop/storefront/internal/cache"
	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/queue"
	"github.com/bluewater-shop/storefront/internal/repository"
	"github.com/bluewater-shop/storefront/internal/service"
)

// Container holds the wired repositories and services.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	TenantGatewayRepo       repository.TenantGatewayRepository
	PaymentWebhookEventRepo repository.PaymentWebhookEventRepository

	// Services
	PaymentFactory            *payment.Factory
	TenantPaymentService      *service.TenantPaymentService
	TenantGatewayAdminService *service.TenantGatewayAdminService
	PaymentWebhookService     *service.PaymentWebhookService
	OrderSyncService          *service.OrderSyncService
	AdminTokenService         *service.AdminTokenService
	AuthzService              *authz.Service
}

// NewContainer builds the container. Redis and queue failures degrade to
// disabled cache and a no-op queue.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.TenantGatewayRepo = repository.NewTenantGatewayRepository(db)
	c.PaymentWebhookEventRepo = repository.NewPaymentWebhookEventRepository(db)
}

func (c *Container) initServices() {
	c.PaymentFactory = payment.NewFactory(payment.FactoryOptions{
		Timeout:          c.Config.Payment.HTTPTimeout(),
		WebhookTolerance: c.Config.Payment.WebhookTolerance(),
	})
	c.TenantPaymentService = service.NewTenantPaymentService(c.TenantGatewayRepo, c.PaymentFactory, c.Config.Payment.GatewayListCacheTTL())
	c.TenantGatewayAdminService = service.NewTenantGatewayAdminService(c.TenantGatewayRepo, c.TenantPaymentService)
	c.PaymentWebhookService = service.NewPaymentWebhookService(c.TenantPaymentService, c.PaymentWebhookEventRepo, c.QueueClient, c.Config.Payment.UnsignedConfirmDelay())
	c.AdminTokenService = service.NewAdminTokenService(c.Config.AdminJWT)
	authzService, err := authz.NewService()
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
	} else {
		c.AuthzService = authzService
	}
	c.OrderSyncService = service.NewOrderSyncService(&c.Config.OrderSync)
	if !c.OrderSyncService.Enabled() {
		logger.Warnw("provider_order_sync_disabled", "hint", "set order_sync.endpoint to forward payment statuses")
	}
}

// Close releases the queue client and Redis connection.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	if err := c.QueueClient.Close(); err != nil {
		firstErr = err
	}
	if err := cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
