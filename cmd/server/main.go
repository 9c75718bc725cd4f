package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/bluewater-shop/storefront/internal/app"
	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
	ansiBlue  = "\033[34m"
)

func main() {
	var rawMode string
	flag.StringVar(&rawMode, "mode", app.ModeAll, "run mode: all (default), api, worker")
	flag.Parse()
	mode, err := app.ParseMode(rawMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printStartupBanner(mode)

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if isWeakSecret(cfg.AdminJWT.SecretKey) {
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("admin_jwt.secret is weak or still the default; configure a strong random secret")
		}
		stdLog.Printf("warning: admin_jwt.secret is weak or still the default")
	}
	if strings.TrimSpace(cfg.Server.PublicBaseURL) == "" {
		stdLog.Printf("warning: server.public_base_url is empty; payments need an explicit notify_url")
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("database init failed: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("database migration failed: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	runErr := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
	if err := models.CloseDB(); err != nil {
		stdLog.Printf("database close failed: %v", err)
	}
	if runErr != nil {
		stdLog.Fatalf("service exited: %v", runErr)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "Bluewater Storefront Payments" + ansiReset)
	fmt.Println(ansiBlue + "gateways: payfast, yoco, peach, ikhokha, stripe" + ansiReset)
	fmt.Println(ansiDim + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
