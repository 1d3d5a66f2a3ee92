package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/events"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/payment/flutterwave"
	"github.com/sela-fruits/sela-store/internal/repository"

	"go.uber.org/zap"
)

// Webhook outcomes that are acknowledged without a state change
const (
	WebhookReasonConfirmed        = "confirmed"
	WebhookReasonUnknownReference = "unknown_reference"
	WebhookReasonAlreadyPaid      = "already_paid"
	WebhookReasonOrderCancelled   = "order_cancelled"
)

// PaymentService hosted checkout and payment confirmation
type PaymentService struct {
	orderRepo repository.OrderRepository
	provider  *flutterwave.Config
	publisher events.Publisher
}

// NewPaymentService creates the payment service; provider may be nil when payments are not configured
func NewPaymentService(orderRepo repository.OrderRepository, provider *flutterwave.Config, publisher events.Publisher) *PaymentService {
	if provider != nil {
		provider.Normalize()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PaymentService{
		orderRepo: orderRepo,
		provider:  provider,
		publisher: publisher,
	}
}

// PaymentSession hosted checkout details returned to the customer
type PaymentSession struct {
	OrderID     string       `json:"orderId"`
	TxRef       string       `json:"txRef"`
	PaymentLink string       `json:"paymentLink"`
	Amount      models.Money `json:"amount"`
	Currency    string       `json:"currency"`
}

// WebhookResult webhook handling outcome; Updated is true only for the delivery that confirmed the order
type WebhookResult struct {
	OrderID string `json:"orderId,omitempty"`
	Updated bool   `json:"updated"`
	Reason  string `json:"reason"`
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(append([]interface{}{"component", "payment"}, kv...)...)
}

func (s *PaymentService) configured() bool {
	return s.provider != nil && ValidatePaymentConfig(s.provider) == nil
}

// ValidatePaymentConfig reports whether the provider settings are usable
func ValidatePaymentConfig(cfg *flutterwave.Config) error {
	return flutterwave.ValidateConfig(cfg)
}

// InitiatePayment requests a hosted checkout link for the stored order total.
// On provider failure the order is left untouched and the call can be repeated.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID string) (*PaymentSession, error) {
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
	switch {
	case order.PaymentStatus == constants.PaymentStatusSuccess:
		return nil, ErrOrderAlreadyPaid
	case order.Status == constants.OrderStatusCancelled:
		return nil, ErrOrderCancelled
	case order.Status != constants.OrderStatusPending:
		return nil, ErrOrderStatusInvalid
	case order.ExpiresAt != nil && !order.ExpiresAt.After(time.Now()):
		return nil, ErrOrderExpired
	}
	if !s.configured() {
		return nil, ErrPaymentNotConfigured
	}

	log := paymentLogger("order_id", order.ID, "amount", order.TotalAmount.String())
	txRef := order.ID
	result, err := flutterwave.CreatePayment(ctx, s.provider, flutterwave.CreateInput{
		TxRef:    txRef,
		Amount:   order.TotalAmount.Decimal,
		Currency: order.Currency,
		Customer: flutterwave.Customer{
			Email: order.CustomerEmail,
			Name:  order.CustomerName,
			Phone: order.CustomerPhone,
		},
		OrderID: order.ID,
	})
	if err != nil {
		log.Errorw("payment_initiate_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
	}

	affected, err := s.orderRepo.SetPaymentRef(order.ID, txRef, result.Link)
	if err != nil {
		log.Errorw("payment_ref_save_failed", "error", err)
		return nil, err
	}
	if affected == 0 {
		// paid between the read and the write
		return nil, ErrOrderAlreadyPaid
	}
	log.Infow("payment_initiated", "tx_ref", txRef)

	return &PaymentSession{
		OrderID:     order.ID,
		TxRef:       txRef,
		PaymentLink: result.Link,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

// HandleWebhook verifies a provider event and confirms the matching order.
// Deliveries for unknown references, paid orders and cancelled orders are acknowledged without side effects.
func (s *PaymentService) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookResult, error) {
	if s.provider == nil || strings.TrimSpace(s.provider.WebhookSecret) == "" {
		return nil, ErrPaymentNotConfigured
	}
	log := paymentLogger("body_size", len(body))

	event, err := flutterwave.VerifyAndParseWebhook(s.provider, headers, body)
	if err != nil {
		if errors.Is(err, flutterwave.ErrSignatureInvalid) {
			log.Warnw("payment_webhook_signature_invalid")
			return nil, ErrWebhookSignatureInvalid
		}
		log.Warnw("payment_webhook_payload_invalid", "error", err)
		return nil, ErrWebhookPayloadInvalid
	}
	log = log.With("tx_ref", event.TxRef, "transaction_id", event.TransactionID, "event", event.Event)
	log.Infow("payment_webhook_received", "claimed_status", event.Status)

	order, err := s.orderRepo.GetByPaymentRef(event.TxRef)
	if err != nil {
		log.Errorw("payment_webhook_order_fetch_failed", "error", err)
		return nil, err
	}
	if order == nil {
		log.Warnw("payment_webhook_unknown_reference")
		return &WebhookResult{Reason: WebhookReasonUnknownReference}, nil
	}
	log = log.With("order_id", order.ID)
	if order.PaymentStatus == constants.PaymentStatusSuccess {
		log.Infow("payment_webhook_duplicate")
		return &WebhookResult{OrderID: order.ID, Reason: WebhookReasonAlreadyPaid}, nil
	}
	if order.Status == constants.OrderStatusCancelled {
		log.Warnw("payment_webhook_order_cancelled")
		return &WebhookResult{OrderID: order.ID, Reason: WebhookReasonOrderCancelled}, nil
	}
	if event.TransactionID == "" {
		log.Warnw("payment_webhook_missing_transaction_id")
		return nil, ErrWebhookPayloadInvalid
	}

	verified, err := flutterwave.VerifyTransaction(ctx, s.provider, event.TransactionID)
	if err != nil {
		log.Errorw("payment_verify_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
	}
	if reason := checkVerifiedPayment(order, event.TransactionID, verified); reason != "" {
		log.Warnw("payment_verify_mismatch",
			"reason", reason,
			"verified_status", verified.RawStatus,
			"verified_amount", verified.Amount.String(),
			"verified_currency", verified.Currency,
			"order_total", order.TotalAmount.String(),
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentVerificationFailed, reason)
	}

	now := time.Now()
	affected, err := s.orderRepo.MarkPaid(order.ID, verified.TransactionID, now)
	if err != nil {
		log.Errorw("payment_mark_paid_failed", "error", err)
		return nil, err
	}
	latest, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// a concurrent delivery or a cancel won the conditional update
		if latest != nil && latest.PaymentStatus == constants.PaymentStatusSuccess {
			log.Infow("payment_webhook_duplicate")
			return &WebhookResult{OrderID: order.ID, Reason: WebhookReasonAlreadyPaid}, nil
		}
		if latest != nil && latest.Status == constants.OrderStatusCancelled {
			log.Warnw("payment_webhook_order_cancelled")
			return &WebhookResult{OrderID: order.ID, Reason: WebhookReasonOrderCancelled}, nil
		}
		return nil, ErrOrderStatusInvalid
	}

	log.Infow("payment_confirmed", "amount", verified.Amount.String())
	if latest != nil {
		if err := s.publisher.PublishOrderPaid(latest); err != nil {
			log.Warnw("order_paid_event_failed", "error", err)
		}
	}
	return &WebhookResult{OrderID: order.ID, Updated: true, Reason: WebhookReasonConfirmed}, nil
}

// checkVerifiedPayment compares the provider's own record against the order; empty means it matches
func checkVerifiedPayment(order *models.Order, transactionID string, verified *flutterwave.VerifyResult) string {
	if verified == nil {
		return "empty_verification"
	}
	if verified.TransactionID == "" || verified.TransactionID != transactionID {
		return "transaction_mismatch"
	}
	if verified.TxRef == "" || order.PaymentRef == nil || verified.TxRef != *order.PaymentRef {
		return "reference_mismatch"
	}
	if verified.Status != flutterwave.StatusSuccess {
		return "status_not_successful"
	}
	if !strings.EqualFold(verified.Currency, order.Currency) {
		return "currency_mismatch"
	}
	if verified.Amount.LessThan(order.TotalAmount.Decimal) {
		return "amount_below_total"
	}
	return ""
}
