package queue

import (
	"encoding/json"

	"github.com/bluewater-shop/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentStatusSync forwards a verified webhook status to order management.
	TaskPaymentStatusSync = constants.TaskPaymentStatusSync
	// TaskPaymentStatusConfirm re-reads an unsigned webhook status from the provider API.
	TaskPaymentStatusConfirm = constants.TaskPaymentStatusConfirm
)

// PaymentStatusPayload is shared by both payment status tasks.
type PaymentStatusPayload struct {
	EventID     uint   `json:"event_id"`
	TenantID    string `json:"tenant_id"`
	GatewayCode string `json:"gateway_code"`
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Trust       string `json:"trust"`
}

// NewPaymentStatusSyncTask creates a status sync task.
func NewPaymentStatusSyncTask(payload PaymentStatusPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentStatusSync, body), nil
}

// NewPaymentStatusConfirmTask creates a status confirmation task.
func NewPaymentStatusConfirmTask(payload PaymentStatusPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentStatusConfirm, body), nil
}

// ParsePaymentStatusPayload decodes a task body.
func ParsePaymentStatusPayload(task *asynq.Task) (PaymentStatusPayload, error) {
	var payload PaymentStatusPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
