package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue is the queue every payment task goes to.
	DefaultQueue = constants.QueueDefault

	defaultMaxRetry = 8
)

// Client wraps the asynq client. A disabled client drops every task.
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
	maxRetry     int
}

// NewClient creates the queue client.
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	maxRetry := defaultMaxRetry
	if cfg.MaxRetry > 0 {
		maxRetry = cfg.MaxRetry
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
		maxRetry:     maxRetry,
	}, nil
}

// Enabled reports whether tasks are actually enqueued.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close closes the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePaymentStatusSync pushes a status sync task. taskID makes
// re-enqueueing the same webhook event a no-op.
func (c *Client) EnqueuePaymentStatusSync(payload PaymentStatusPayload, taskID string, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentStatusSyncTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, taskID, opts...)
}

// EnqueuePaymentStatusConfirm pushes a confirmation task, delayed so the
// provider has settled the payment before it is polled.
func (c *Client) EnqueuePaymentStatusConfirm(payload PaymentStatusPayload, taskID string, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewPaymentStatusConfirmTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, taskID, asynq.ProcessIn(delay))
}

func (c *Client) enqueue(task *asynq.Task, taskID string, opts ...asynq.Option) error {
	options := []asynq.Option{asynq.Queue(c.defaultQueue), asynq.MaxRetry(c.maxRetry)}
	if strings.TrimSpace(taskID) != "" {
		options = append(options, asynq.TaskID(taskID))
	}
	options = append(options, opts...)
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig builds the worker server settings.
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
