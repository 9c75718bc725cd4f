package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/provider"
	"github.com/bluewater-shop/storefront/internal/router"
	"github.com/bluewater-shop/storefront/internal/worker"
)

// BuildRunner wires the services selected by mode.
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if mode == ModeWorker && !cfg.Queue.Enabled {
		return nil, errors.New("worker mode requires queue.enabled")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	if (mode == ModeAll || mode == ModeWorker) && cfg.Queue.Enabled {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services initialized for mode %q", mode)
	}

	services = append(services, newContainerService(container))
	return NewRunner(services...), nil
}

// Run builds the runner from opts and blocks until shutdown.
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}

// containerService releases shared clients after the other services stop.
type containerService struct {
	container *provider.Container
}

func newContainerService(c *provider.Container) *containerService {
	return &containerService{container: c}
}

func (s *containerService) Name() string { return "container" }

func (s *containerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *containerService) Stop(ctx context.Context) error {
	return s.container.Close()
}
