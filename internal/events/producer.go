package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Event envelope written to the orders topic
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	OrderID    string      `json:"order_id"`
	Payload    interface{} `json:"payload"`
}

// OrderCreatedPayload order.created body
type OrderCreatedPayload struct {
	UserID       *uint        `json:"user_id,omitempty"`
	Subtotal     models.Money `json:"subtotal"`
	TotalAmount  models.Money `json:"total_amount"`
	DeliveryZone string       `json:"delivery_zone"`
	ItemCount    int          `json:"item_count"`
}

// OrderPaidPayload order.paid body
type OrderPaidPayload struct {
	TotalAmount           models.Money `json:"total_amount"`
	Currency              string       `json:"currency"`
	ProviderTransactionID string       `json:"provider_transaction_id"`
	PaidAt                time.Time    `json:"paid_at"`
}

// OrderStatusChangedPayload order.status_changed body
type OrderStatusChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Publisher emits order lifecycle events
type Publisher interface {
	PublishOrderCreated(order *models.Order) error
	PublishOrderPaid(order *models.Order) error
	PublishOrderStatusChanged(orderID, from, to string) error
	Close() error
}

// Producer Kafka publisher
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher returns a Kafka producer when enabled, otherwise Noop
func NewPublisher(cfg *config.KafkaConfig) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return Noop{}, nil
	}
	return NewProducer(cfg)
}

// NewProducer connects a synchronous producer
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = strings.TrimSpace(cfg.ClientID)
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Retry.Backoff = 500 * time.Millisecond
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducerWith(producer, cfg.Topics.Orders), nil
}

func newProducerWith(producer sarama.SyncProducer, topic string) *Producer {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "sela.orders"
	}
	return &Producer{producer: producer, topic: topic}
}

// PublishOrderCreated emits order.created
func (p *Producer) PublishOrderCreated(order *models.Order) error {
	if order == nil {
		return nil
	}
	return p.publish(order.ID, constants.EventOrderCreated, OrderCreatedPayload{
		UserID:       order.UserID,
		Subtotal:     order.Subtotal,
		TotalAmount:  order.TotalAmount,
		DeliveryZone: order.DeliveryZone,
		ItemCount:    len(order.Items),
	})
}

// PublishOrderPaid emits order.paid
func (p *Producer) PublishOrderPaid(order *models.Order) error {
	if order == nil {
		return nil
	}
	paidAt := time.Now()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	return p.publish(order.ID, constants.EventOrderPaid, OrderPaidPayload{
		TotalAmount:           order.TotalAmount,
		Currency:              order.Currency,
		ProviderTransactionID: order.ProviderTransactionID,
		PaidAt:                paidAt,
	})
}

// PublishOrderStatusChanged emits order.status_changed
func (p *Producer) PublishOrderStatusChanged(orderID, from, to string) error {
	return p.publish(orderID, constants.EventOrderStatusChanged, OrderStatusChangedPayload{From: from, To: to})
}

func (p *Producer) publish(orderID, eventType string, payload interface{}) error {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		Payload:    payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(orderID),
		Value: sarama.ByteEncoder(body),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Warnw("order_event_publish_failed",
			"event_type", eventType,
			"order_id", orderID,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("send event: %w", err)
	}
	logger.Debugw("order_event_published",
		"event_type", eventType,
		"order_id", orderID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close closes the underlying producer
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// Noop drops every event
type Noop struct{}

func (Noop) PublishOrderCreated(*models.Order) error                { return nil }
func (Noop) PublishOrderPaid(*models.Order) error                   { return nil }
func (Noop) PublishOrderStatusChanged(string, string, string) error { return nil }
func (Noop) Close() error                                           { return nil }
