package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

// shutdownGrace is how long in-flight status jobs get to finish on stop.
const shutdownGrace = 8 * time.Second

// Service runs the asynq server that consumes payment status jobs.
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService creates the worker service. The queue must be enabled.
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	serverCfg.ShutdownTimeout = shutdownGrace
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(logTaskFailure)

	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	taskID, _ := asynq.GetTaskID(ctx)
	log := logger.SW("task_type", task.Type(), "task_id", taskID, "retried", retried, "max_retry", maxRetry, "error", err)
	if retried >= maxRetry {
		log.Errorw("worker_task_exhausted")
		return
	}
	log.Warnw("worker_task_failed")
}

// Name returns the service name.
func (s *Service) Name() string { return "worker" }

// Start runs the server until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop shuts the server down, waiting up to shutdownGrace for in-flight tasks.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
