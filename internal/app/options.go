package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/logger"

	"go.uber.org/zap"
)

// Run modes. api serves checkout, webhooks and admin routes; worker consumes
// payment status jobs; all does both in one process.
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// ParseMode validates a -mode flag value. Blank means ModeAll.
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown run mode %q (want all, api or worker)", raw)
	}
}

// Options configures Run.
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if mode, err := ParseMode(opts.Mode); err == nil {
		opts.Mode = mode
	}
	return opts
}
