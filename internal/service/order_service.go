package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/events"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/queue"
	"github.com/sela-fruits/sela-store/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultPaymentExpireMinutes = 60
	maxOrderLines               = 50
	maxLineQuantity             = 10000
)

// OrderSettings checkout settings
type OrderSettings struct {
	Currency                 string
	BaseDeliveryFee          models.Money
	WhatsAppNumber           string
	PaymentExpireMinutes     int
	ReferralCompleteAttempts int
	ReferralCompleteBackoff  time.Duration
}

type referralCompleter interface {
	CompleteReferral(userID uint, orderID string) (bool, error)
}

// OrderService order pipeline
type OrderService struct {
	db               *gorm.DB
	orderRepo        repository.OrderRepository
	productRepo      repository.ProductRepository
	promotionService *PromotionService
	referralService  *ReferralService
	// referralCompleter is referralService outside tests
	referralCompleter referralCompleter
	queueClient       *queue.Client
	retryWG           sync.WaitGroup
	publisher         events.Publisher
	settings          OrderSettings
}

// NewOrderService creates the order service
func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, productRepo repository.ProductRepository, promotionService *PromotionService, referralService *ReferralService, queueClient *queue.Client, publisher events.Publisher, settings OrderSettings) *OrderService {
	if strings.TrimSpace(settings.Currency) == "" {
		settings.Currency = constants.DefaultCurrency
	}
	if settings.PaymentExpireMinutes <= 0 {
		settings.PaymentExpireMinutes = defaultPaymentExpireMinutes
	}
	if settings.ReferralCompleteAttempts <= 0 {
		settings.ReferralCompleteAttempts = 1
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderService{
		db:                db,
		orderRepo:         orderRepo,
		productRepo:       productRepo,
		promotionService:  promotionService,
		referralService:   referralService,
		referralCompleter: referralService,
		queueClient:       queueClient,
		publisher:         publisher,
		settings:          settings,
	}
}

// CreateOrderItem requested line
type CreateOrderItem struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput checkout request
type CreateOrderInput struct {
	Items           []CreateOrderItem
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	Notes           string
}

// PreviewOrderInput quote request
type PreviewOrderInput struct {
	Items           []CreateOrderItem
	DeliveryAddress string
}

// CreateOrderResult checkout response body
type CreateOrderResult struct {
	Success          bool          `json:"success"`
	OrderID          string        `json:"orderId"`
	Subtotal         models.Money  `json:"subtotal"`
	DiscountAmount   models.Money  `json:"discountAmount"`
	DeliveryFee      models.Money  `json:"deliveryFee"`
	DeliveryDiscount models.Money  `json:"deliveryDiscount"`
	DeliveryZone     string        `json:"deliveryZone"`
	TotalAmount      models.Money  `json:"totalAmount"`
	WhatsAppURL      string        `json:"whatsappUrl"`
	Order            *models.Order `json:"-"`
}

// normalizeItems rejects malformed lines and merges repeated products
func normalizeItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(items) == 0 {
		return nil, ErrOrderItemsEmpty
	}
	if len(items) > maxOrderLines {
		return nil, fmt.Errorf("%w: at most %d lines", ErrInvalidOrderItem, maxOrderLines)
	}
	merged := make([]CreateOrderItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 {
			return nil, fmt.Errorf("%w: productId is required", ErrInvalidOrderItem)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %d must be positive", ErrInvalidOrderItem, item.ProductID)
		}
		if item.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity for product %d exceeds %d", ErrInvalidOrderItem, item.ProductID, maxLineQuantity)
		}
		if pos, ok := index[item.ProductID]; ok {
			if merged[pos].Quantity > maxLineQuantity-item.Quantity {
				return nil, fmt.Errorf("%w: quantity for product %d exceeds %d", ErrInvalidOrderItem, item.ProductID, maxLineQuantity)
			}
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func normalizeCustomer(input *CreateOrderInput) error {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
	input.Notes = strings.TrimSpace(input.Notes)

	missing := make([]string, 0, 4)
	if input.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if input.CustomerEmail == "" {
		missing = append(missing, "customerEmail")
	}
	if input.CustomerPhone == "" {
		missing = append(missing, "customerPhone")
	}
	if input.DeliveryAddress == "" {
		missing = append(missing, "deliveryAddress")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrCustomerInfoInvalid, strings.Join(missing, ", "))
	}
	if addr, err := mail.ParseAddress(input.CustomerEmail); err != nil || addr.Address != input.CustomerEmail {
		return ErrInvalidEmail
	}
	return nil
}

// PreviewOrder prices a cart without persisting or consuming anything
func (s *OrderService) PreviewOrder(ctx context.Context, userID *uint, input PreviewOrderInput) (*OrderQuote, error) {
	items, err := normalizeItems(input.Items)
	if err != nil {
		return nil, err
	}
	return s.buildQuote(ctx, userID, items, strings.TrimSpace(input.DeliveryAddress), time.Now(), false)
}

// CreateOrder validates, prices and persists an order with its stock decrements in one transaction.
// userID is nil for guest checkout.
func (s *OrderService) CreateOrder(ctx context.Context, userID *uint, input CreateOrderInput) (*CreateOrderResult, error) {
	items, err := normalizeItems(input.Items)
	if err != nil {
		return nil, err
	}
	if err := normalizeCustomer(&input); err != nil {
		return nil, err
	}
	if userID != nil && *userID == 0 {
		userID = nil
	}

	now := time.Now().UTC()
	quote, err := s.buildQuote(ctx, userID, items, input.DeliveryAddress, now, true)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	for attempt := 0; attempt < orderIDMaxAttempts; attempt++ {
		orderID, genErr := generateOrderID()
		if genErr != nil {
			return nil, genErr
		}
		order, err = s.persistOrder(orderID, userID, input, *quote, now)
		if err == nil {
			break
		}
		if isUniqueViolation(err) {
			logger.Warnw("order_id_collision", "order_id", orderID, "attempt", attempt+1)
			continue
		}
		if errors.Is(err, ErrStockConflict) {
			return nil, err
		}
		logger.Errorw("order_create_failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err != nil {
		return nil, ErrOrderIDExhausted
	}

	s.afterOrderCreated(order, userID)

	return &CreateOrderResult{
		Success:          true,
		OrderID:          order.ID,
		Subtotal:         order.Subtotal,
		DiscountAmount:   order.DiscountAmount,
		DeliveryFee:      order.DeliveryFee,
		DeliveryDiscount: order.DeliveryDiscount,
		DeliveryZone:     order.DeliveryZone,
		TotalAmount:      order.TotalAmount,
		WhatsAppURL:      buildWhatsAppURL(s.settings.WhatsAppNumber, order),
		Order:            order,
	}, nil
}

func (s *OrderService) persistOrder(orderID string, userID *uint, input CreateOrderInput, quote OrderQuote, now time.Time) (*models.Order, error) {
	expiresAt := now.UTC().Add(time.Duration(s.settings.PaymentExpireMinutes) * time.Minute)
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if quote.ReferralApplied && userID != nil {
			consumed, err := s.referralService.ConsumeReward(tx, *userID, orderID, now)
			if err != nil {
				return err
			}
			if !consumed {
				quote = quote.withoutReferral()
			}
		}

		order = &models.Order{
			ID:               orderID,
			UserID:           userID,
			CustomerName:     input.CustomerName,
			CustomerEmail:    input.CustomerEmail,
			CustomerPhone:    input.CustomerPhone,
			DeliveryAddress:  input.DeliveryAddress,
			Notes:            input.Notes,
			Currency:         quote.Currency,
			Subtotal:         quote.Subtotal,
			DiscountAmount:   quote.DiscountAmount,
			DeliveryFee:      quote.DeliveryFee,
			DeliveryDiscount: quote.DeliveryDiscount,
			DeliveryZone:     quote.DeliveryZone,
			TotalAmount:      quote.TotalAmount,
			Status:           constants.OrderStatusPending,
			PaymentStatus:    constants.PaymentStatusPending,
			ExpiresAt:        &expiresAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		items := make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			items = append(items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				PriceAtTime: line.UnitPrice,
				PriceSource: line.PriceSource,
				LineTotal:   line.LineTotal,
				CreatedAt:   now,
			})
		}
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return err
		}

		productRepo := s.productRepo.WithTx(tx)
		for _, line := range quote.Lines {
			affected, err := productRepo.DecrementStock(line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("%w: %s", ErrStockConflict, line.ProductName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// afterOrderCreated runs the post-commit side effects. None of them can fail the order.
func (s *OrderService) afterOrderCreated(order *models.Order, userID *uint) {
	logger.Infow("order_created",
		"order_id", order.ID,
		"user_id", userID,
		"total_amount", order.TotalAmount.String(),
		"delivery_zone", order.DeliveryZone,
		"referral_discount", order.DiscountAmount.String(),
	)
	if userID != nil {
		s.completeReferral(*userID, order.ID)
	}
	if err := s.publisher.PublishOrderCreated(order); err != nil {
		logger.Warnw("order_created_event_failed", "order_id", order.ID, "error", err)
	}
	delay := time.Duration(s.settings.PaymentExpireMinutes) * time.Minute
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
		logger.Errorw("order_enqueue_timeout_cancel_failed", "order_id", order.ID, "error", err)
	}
}

// completeReferral makes one attempt in the request path. Failures go to the queue,
// or to a background retry loop when the queue is off.
func (s *OrderService) completeReferral(userID uint, orderID string) {
	_, err := s.referralCompleter.CompleteReferral(userID, orderID)
	if err == nil {
		return
	}
	logger.Warnw("referral_complete_failed", "user_id", userID, "order_id", orderID, "attempt", 1, "error", err)
	if s.queueClient.Enabled() {
		err = s.queueClient.EnqueueReferralComplete(queue.ReferralCompletePayload{UserID: userID, OrderID: orderID})
		if err == nil {
			return
		}
		logger.Warnw("referral_complete_enqueue_failed", "user_id", userID, "order_id", orderID, "error", err)
	}
	if s.settings.ReferralCompleteAttempts <= 1 {
		logger.Errorw("referral_complete_dropped", "user_id", userID, "order_id", orderID)
		return
	}
	s.retryWG.Add(1)
	go func() {
		defer s.retryWG.Done()
		s.retryReferralCompletion(userID, orderID)
	}()
}

func (s *OrderService) retryReferralCompletion(userID uint, orderID string) {
	var lastErr error
	for attempt := 2; attempt <= s.settings.ReferralCompleteAttempts; attempt++ {
		if backoff := s.settings.ReferralCompleteBackoff; backoff > 0 {
			time.Sleep(backoff * time.Duration(attempt-1))
		}
		_, err := s.referralCompleter.CompleteReferral(userID, orderID)
		if err == nil {
			return
		}
		lastErr = err
		logger.Warnw("referral_complete_failed", "user_id", userID, "order_id", orderID, "attempt", attempt, "error", err)
	}
	logger.Errorw("referral_complete_dropped", "user_id", userID, "order_id", orderID, "error", lastErr)
}
