package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/provider"
	"github.com/sela-fruits/sela-store/internal/queue"

	"github.com/hibiken/asynq"
)

type expiredOrderCanceller interface {
	CancelExpiredOrder(ctx context.Context, orderID string) (bool, error)
	SweepExpiredOrders(ctx context.Context, limit int) (int, error)
}

type referralCompleter interface {
	CompleteReferral(userID uint, orderID string) (bool, error)
}

// Consumer async task consumer
type Consumer struct {
	orders    expiredOrderCanceller
	referrals referralCompleter
}

// NewConsumer creates the consumer from the container
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return newConsumer(c.OrderService, c.ReferralService)
}

func newConsumer(orders expiredOrderCanceller, referrals referralCompleter) *Consumer {
	return &Consumer{orders: orders, referrals: referrals}
}

// Register registers task handlers
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskReferralComplete, c.handleReferralComplete)
}

func (c *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload")
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", orderID)
		return nil
	}
	cancelled, err := c.orders.CancelExpiredOrder(ctx, orderID)
	if err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", orderID, "error", err)
		return err
	}
	if cancelled {
		logger.Infow("worker_order_timeout_cancelled", "order_id", orderID)
	} else {
		logger.Debugw("worker_order_timeout_cancel_skip", "order_id", orderID)
	}
	return nil
}

func (c *Consumer) handleReferralComplete(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_referral_complete_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReferralCompletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_complete_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || strings.TrimSpace(payload.OrderID) == "" {
		logger.Debugw("worker_referral_complete_skip_invalid_payload", "user_id", payload.UserID, "order_id", payload.OrderID)
		return nil
	}
	if c.referrals == nil {
		logger.Warnw("worker_referral_complete_skip_service_nil", "user_id", payload.UserID)
		return nil
	}
	completed, err := c.referrals.CompleteReferral(payload.UserID, payload.OrderID)
	if err != nil {
		logger.Warnw("worker_referral_complete_failed",
			"user_id", payload.UserID,
			"order_id", payload.OrderID,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_referral_complete_done",
		"user_id", payload.UserID,
		"order_id", payload.OrderID,
		"completed", completed,
	)
	return nil
}
