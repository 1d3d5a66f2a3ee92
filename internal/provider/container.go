package provider

import (
	"fmt"
	"time"

	"github.com/sela-fruits/sela-store/internal/authz"
	"github.com/sela-fruits/sela-store/internal/cache"
	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/events"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/payment/flutterwave"
	"github.com/sela-fruits/sela-store/internal/queue"
	"github.com/sela-fruits/sela-store/internal/repository"
	"github.com/sela-fruits/sela-store/internal/service"

	"gorm.io/gorm"
)

// Container dependency container
type Container struct {
	Config         *config.Config
	DB             *gorm.DB
	QueueClient    *queue.Client
	EventPublisher events.Publisher

	// Repositories
	ProductRepo   repository.ProductRepository
	FlashSaleRepo repository.FlashSaleRepository
	PromotionRepo repository.PromotionRepository
	UserRepo      repository.UserRepository
	ReferralRepo  repository.ReferralRepository
	OrderRepo     repository.OrderRepository

	// Services
	AuthzService     *authz.Service
	ProductService   *service.ProductService
	PromotionService *service.PromotionService
	ReferralService  *service.ReferralService
	OrderService     *service.OrderService
	PaymentService   *service.PaymentService
}

// NewContainer connects redis, the queue client and the event publisher, then wires
// repositories and services on db.
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	publisher, err := events.NewPublisher(&cfg.Kafka)
	if err != nil {
		logger.Warnw("provider_init_kafka_failed", "error", err, "fallback", "noop")
		publisher = events.Noop{}
	}

	c := &Container{
		Config:         cfg,
		DB:             db,
		QueueClient:    queueClient,
		EventPublisher: publisher,
	}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases external clients
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_failed", "error", err)
		}
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			logger.Warnw("provider_close_publisher_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := c.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.FlashSaleRepo = repository.NewFlashSaleRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return fmt.Errorf("init authz failed: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles failed: %w", err)
	}
	c.AuthzService = authzService

	orderCfg := c.Config.Order
	baseFee, err := models.ParseMoney(orderCfg.BaseDeliveryFee)
	if err != nil || baseFee.IsNegative() {
		return fmt.Errorf("invalid order.base_delivery_fee %q", orderCfg.BaseDeliveryFee)
	}
	discountPercent, err := models.ParseMoney(c.Config.Referral.DiscountPercent)
	if err != nil || discountPercent.IsNegative() || discountPercent.GreaterThan(models.NewMoneyFromInt(100).Decimal) {
		return fmt.Errorf("invalid referral.discount_percent %q", c.Config.Referral.DiscountPercent)
	}

	c.PromotionService = service.NewPromotionService(c.FlashSaleRepo, c.PromotionRepo, c.ProductRepo, orderCfg.NearShopAreas)
	c.ProductService = service.NewProductService(c.ProductRepo, c.PromotionService)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.UserRepo, c.Config.Referral.Threshold, discountPercent)
	c.OrderService = service.NewOrderService(c.DB, c.OrderRepo, c.ProductRepo, c.PromotionService, c.ReferralService, c.QueueClient, c.EventPublisher, service.OrderSettings{
		Currency:                 orderCfg.Currency,
		BaseDeliveryFee:          baseFee,
		WhatsAppNumber:           orderCfg.WhatsAppNumber,
		PaymentExpireMinutes:     orderCfg.PaymentExpireMinutes,
		ReferralCompleteAttempts: orderCfg.ReferralCompleteAttempts,
		ReferralCompleteBackoff:  time.Duration(orderCfg.ReferralCompleteBackoffMS) * time.Millisecond,
	})
	providerCfg := FlutterwaveConfig(&c.Config.Flutterwave)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, providerCfg, c.EventPublisher)
	if err := service.ValidatePaymentConfig(providerCfg); err != nil {
		logger.Warnw("provider_payment_not_configured", "error", err)
	}
	return nil
}

// FlutterwaveConfig converts the config section into the client settings
func FlutterwaveConfig(cfg *config.FlutterwaveConfig) *flutterwave.Config {
	if cfg == nil {
		return &flutterwave.Config{}
	}
	return &flutterwave.Config{
		SecretKey:       cfg.SecretKey,
		WebhookSecret:   cfg.WebhookSecret,
		SignatureHeader: cfg.SignatureHeader,
		APIBaseURL:      cfg.APIBaseURL,
		RedirectURL:     cfg.RedirectURL,
		Timeout:         time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}
