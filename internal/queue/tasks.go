package queue

import (
	"encoding/json"

	"github.com/reflink-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderEvent 订单事件结算任务
	TaskOrderEvent = constants.TaskOrderEvent
	// TaskWalletReconcile 钱包对账任务
	TaskWalletReconcile = constants.TaskWalletReconcile
)

// OrderEventPayload 订单事件任务载荷（携带原始 webhook 载荷）
type OrderEventPayload struct {
	EventType string          `json:"event_type"`
	Body      json.RawMessage `json:"body"`
}

// WalletReconcilePayload 钱包对账任务载荷
type WalletReconcilePayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// NewOrderEventTask 创建订单事件任务
func NewOrderEventTask(payload OrderEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderEvent, body), nil
}

// NewWalletReconcileTask 创建钱包对账任务
func NewWalletReconcileTask(payload WalletReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWalletReconcile, body), nil
}
