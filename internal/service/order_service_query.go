package service

import (
	"context"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"
)

// ensureOrderCancelledIfExpired lazily cancels an expired unpaid order on read
func (s *OrderService) ensureOrderCancelledIfExpired(order *models.Order) {
	if order == nil {
		return
	}
	if _, err := s.cancelIfExpired(order, time.Now()); err != nil {
		logger.Warnw("order_lazy_expire_failed", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) ensureOrdersCancelledIfExpired(orders []models.Order) {
	for i := range orders {
		s.ensureOrderCancelledIfExpired(&orders[i])
	}
}

// GetOrder order detail by id
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
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
	s.ensureOrderCancelledIfExpired(order)
	return order, nil
}

// GetUserOrder order detail scoped to its owner
func (s *OrderService) GetUserOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetGuestOrder order detail for guest lookup; the email must match the order
func (s *OrderService) GetGuestOrder(ctx context.Context, orderID, email string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), order.CustomerEmail) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders orders placed by a signed-in user
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.UserID = &userID
	filter.CustomerEmail = ""
	return s.ListOrders(ctx, filter)
}

// ListOrders admin order list
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	filter.PaymentStatus = strings.ToUpper(strings.TrimSpace(filter.PaymentStatus))
	if filter.Status != "" && !isKnownOrderStatus(filter.Status) {
		return nil, 0, ErrOrderStatusUnknown
	}
	orders, total, err := s.orderRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	s.ensureOrdersCancelledIfExpired(orders)
	return orders, total, nil
}
