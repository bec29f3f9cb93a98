package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/provider"
	"github.com/reflink-next/internal/queue"
	"github.com/reflink-next/internal/service"
	"github.com/reflink-next/internal/shopify"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderEvent, c.handleOrderEvent)
	mux.HandleFunc(queue.TaskWalletReconcile, c.handleWalletReconcile)
}

// handleOrderEvent 消费订单事件：驱动佣金记账/确认/冲销。
// 结算链路幂等，asynq 重试安全。
func (c *Consumer) handleOrderEvent(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_event_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventType == "" || len(payload.Body) == 0 {
		logger.Debugw("worker_order_event_skip_invalid_payload", "event_type", payload.EventType)
		return nil
	}

	event, err := shopify.ParseOrderEvent(payload.Body)
	if err != nil {
		// 载荷已验签且无法解析，重试不会有结果
		logger.Warnw("worker_order_event_parse_failed", "event_type", payload.EventType, "error", err)
		return nil
	}

	if err := c.CommissionService.HandleOrderEvent(payload.EventType, event); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_event_skip_order_not_found",
				"event_type", payload.EventType, "platform_order_id", event.ID)
			return nil
		}
		logger.Warnw("worker_order_event_failed",
			"event_type", payload.EventType,
			"platform_order_id", event.ID,
			"error", err)
		return err
	}
	return nil
}

// handleWalletReconcile 消费钱包对账任务
func (c *Consumer) handleWalletReconcile(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_wallet_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WalletReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_wallet_reconcile_unmarshal_failed", "error", err)
		return err
	}

	drifted, err := c.CommissionService.ReconcileWallets()
	if err != nil {
		logger.Warnw("worker_wallet_reconcile_failed", "triggered_by", payload.TriggeredBy, "error", err)
		return err
	}
	logger.Infow("worker_wallet_reconcile_done", "triggered_by", payload.TriggeredBy, "drifted", drifted)
	return nil
}
