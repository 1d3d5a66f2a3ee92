package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

const expiredCancelReason = "payment_timeout"

// allowedTransitions manual status moves. PENDING -> CONFIRMED happens only through a verified payment.
var allowedTransitions = map[string][]string{
	constants.OrderStatusPending:    {constants.OrderStatusCancelled},
	constants.OrderStatusConfirmed:  {constants.OrderStatusProcessing, constants.OrderStatusCancelled},
	constants.OrderStatusProcessing: {constants.OrderStatusShipped, constants.OrderStatusCancelled},
	constants.OrderStatusShipped:    {constants.OrderStatusDelivered, constants.OrderStatusCancelled},
}

var nonTerminalStatuses = []string{
	constants.OrderStatusPending,
	constants.OrderStatusConfirmed,
	constants.OrderStatusProcessing,
	constants.OrderStatusShipped,
}

func isKnownOrderStatus(status string) bool {
	switch status {
	case constants.OrderStatusPending,
		constants.OrderStatusConfirmed,
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
		constants.OrderStatusCancelled:
		return true
	}
	return false
}

func canTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves an order along the fulfilment flow.
// Setting the current status again returns the order unchanged.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	target := strings.ToUpper(strings.TrimSpace(status))
	if !isKnownOrderStatus(target) {
		return nil, ErrOrderStatusUnknown
	}
	if target == constants.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID, "")
	}

	id := NormalizeOrderID(orderID)
	if id == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == target {
		return order, nil
	}
	if !canTransition(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrOrderStatusInvalid, order.Status, target)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if target == constants.OrderStatusDelivered {
		updates["delivered_at"] = now
	}
	affected, err := s.orderRepo.TransitionStatus(order.ID, []string{order.Status}, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// lost a race with another writer
		return nil, fmt.Errorf("%w: order changed concurrently", ErrOrderStatusInvalid)
	}

	s.afterStatusChanged(order.ID, order.Status, target)
	return s.orderRepo.GetByID(order.ID)
}

// CancelOrder cancels a non-terminal order and restores its stock in the same transaction.
// Cancelling an already cancelled order is a no-op.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error) {
	id := NormalizeOrderID(orderID)
	if id == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusCancelled {
		return order, nil
	}
	if order.Status == constants.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: delivered orders cannot be cancelled", ErrOrderStatusInvalid)
	}

	cancelled, err := s.cancelWithRestock(order, strings.TrimSpace(reason), time.Now())
	if err != nil {
		return nil, err
	}
	if !cancelled {
		latest, err := s.orderRepo.GetByID(order.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.Status == constants.OrderStatusCancelled {
			return latest, nil
		}
		return nil, fmt.Errorf("%w: order changed concurrently", ErrOrderStatusInvalid)
	}
	s.afterStatusChanged(order.ID, order.Status, constants.OrderStatusCancelled)
	return s.orderRepo.GetByID(order.ID)
}

// CancelExpiredOrder cancels an order that is still unpaid past its expiry.
// Returns false when the order is gone, paid or not yet expired.
func (s *OrderService) CancelExpiredOrder(ctx context.Context, orderID string) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, err
	}
	return s.cancelIfExpired(order, time.Now())
}

// SweepExpiredOrders cancels unpaid orders whose timeout task never ran
func (s *OrderService) SweepExpiredOrders(ctx context.Context, limit int) (int, error) {
	ids, err := s.orderRepo.ListExpiredPendingIDs(time.Now(), limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		ok, err := s.CancelExpiredOrder(ctx, id)
		if err != nil {
			logger.Warnw("order_expire_sweep_item_failed", "order_id", id, "error", err)
			continue
		}
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}

func (s *OrderService) cancelIfExpired(order *models.Order, now time.Time) (bool, error) {
	if order == nil || order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.PaymentStatusPending {
		return false, nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(now) {
		return false, nil
	}
	cancelled, err := s.cancelWithRestock(order, expiredCancelReason, now)
	if err != nil {
		return false, err
	}
	if cancelled {
		order.Status = constants.OrderStatusCancelled
		order.CancelReason = expiredCancelReason
		order.CancelledAt = &now
		order.UpdatedAt = now
		logger.Infow("order_expired_cancelled", "order_id", order.ID)
		s.afterStatusChanged(order.ID, constants.OrderStatusPending, constants.OrderStatusCancelled)
	}
	return cancelled, nil
}

// cancelWithRestock flips the status first so a second cancel never restores stock twice
func (s *OrderService) cancelWithRestock(order *models.Order, reason string, now time.Time) (bool, error) {
	from := nonTerminalStatuses
	if reason == expiredCancelReason {
		from = []string{constants.OrderStatusPending}
	}
	cancelled := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":       constants.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		// a payment landing after the read moves the order off PENDING, so the update misses
		affected, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID, from, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		productRepo := s.productRepo.WithTx(tx)
		for _, item := range order.Items {
			if _, err := productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

func (s *OrderService) afterStatusChanged(orderID, from, to string) {
	logger.Infow("order_status_changed", "order_id", orderID, "from", from, "to", to)
	if err := s.publisher.PublishOrderStatusChanged(orderID, from, to); err != nil {
		logger.Warnw("order_status_event_failed", "order_id", orderID, "to", to, "error", err)
	}
}
