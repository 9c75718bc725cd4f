package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/bluewater-shop/storefront/internal/cache"
	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/constants"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/repository"
	"github.com/bluewater-shop/storefront/internal/service"
)

// PayFast publishes these sandbox merchant credentials.
var payfastSandbox = map[string]string{
	"merchant_id":  "10000100",
	"merchant_key": "46f0cd694581a",
	"passphrase":   "jt7NOE43FZPn",
}

func main() {
	var tenantID string
	flag.StringVar(&tenantID, "tenant", "demo", "tenant id to seed")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	defer models.CloseDB()
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		stdLog.Printf("Redis disabled: %v", err)
	}
	defer cache.Close()

	repo := repository.NewTenantGatewayRepository(models.DB)
	paymentSvc := service.NewTenantPaymentService(repo, payment.NewFactory(payment.FactoryOptions{}), cfg.Payment.GatewayListCacheTTL())
	adminSvc := service.NewTenantGatewayAdminService(repo, paymentSvc)
	ctx := context.Background()

	seeds := []service.SaveTenantGatewayInput{
		{
			TenantID:     tenantID,
			GatewayCode:  "payfast",
			Credentials:  payfastSandbox,
			IsEnabled:    true,
			IsDefault:    true,
			IsSandbox:    true,
			DisplayOrder: 1,
		},
	}
	if secret := strings.TrimSpace(os.Getenv("SEED_YOCO_SECRET_KEY")); secret != "" {
		seeds = append(seeds, service.SaveTenantGatewayInput{
			TenantID:    tenantID,
			GatewayCode: "yoco",
			Credentials: map[string]string{
				"secret_key":     secret,
				"webhook_secret": os.Getenv("SEED_YOCO_WEBHOOK_SECRET"),
			},
			IsEnabled:    true,
			IsSandbox:    true,
			DisplayOrder: 2,
		})
	}
	if secret := strings.TrimSpace(os.Getenv("SEED_STRIPE_SECRET_KEY")); secret != "" {
		seeds = append(seeds, service.SaveTenantGatewayInput{
			TenantID:    tenantID,
			GatewayCode: "stripe",
			Credentials: map[string]string{
				"secret_key":     secret,
				"webhook_secret": os.Getenv("SEED_STRIPE_WEBHOOK_SECRET"),
			},
			IsEnabled:    true,
			IsSandbox:    true,
			DisplayOrder: 3,
		})
	}

	for _, input := range seeds {
		view, err := adminSvc.SaveTenantGateway(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to seed %s for %s: %v", input.GatewayCode, tenantID, err)
			continue
		}
		stdLog.Printf("Seeded gateway %s for tenant %s (default=%v)", view.GatewayCode, view.TenantID, view.IsDefault)
	}

	tokens := service.NewAdminTokenService(cfg.AdminJWT)
	token, expiresAt, err := tokens.Issue("seed", constants.AdminRoleTenant, tenantID)
	if err != nil {
		stdLog.Printf("Failed to issue admin token: %v", err)
		return
	}
	stdLog.Printf("Tenant admin token for %s (expires %s):\n%s", tenantID, expiresAt.Format("2006-01-02 15:04"), token)
}
