package router

import (
	"fmt"
	"strings"

	"github.com/sela-fruits/sela-store/internal/cache"
	"github.com/sela-fruits/sela-store/internal/config"
	adminhandlers "github.com/sela-fruits/sela-store/internal/http/handlers/admin"
	publichandlers "github.com/sela-fruits/sela-store/internal/http/handlers/public"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine with every route group
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sela"
	}
	redisClient := cache.Client()
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
	}
	webhookRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:webhook", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	api := r.Group("/api/v1")
	{
		public := api.Group("/public")
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:id", publicHandler.GetProduct)
			public.GET("/delivery-quote", publicHandler.GetDeliveryQuote)
		}

		// guests and signed-in customers share checkout
		orders := api.Group("/orders")
		orders.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey))
		{
			orders.POST("/preview", publicHandler.PreviewOrder)
			orders.POST("", RateLimitMiddleware(redisClient, checkoutRule, KeyByIPAndJSONField("customerEmail")), publicHandler.CreateOrder)
			orders.GET("/:id", publicHandler.GetOrder)
			orders.POST("/:id/payment", RateLimitMiddleware(redisClient, checkoutRule, KeyByIP), publicHandler.InitiatePayment)
		}

		api.POST("/payments/webhook", RateLimitMiddleware(redisClient, webhookRule, KeyByIP), publicHandler.PaymentWebhook)

		me := api.Group("/me")
		me.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			me.GET("/orders", publicHandler.ListMyOrders)
			me.GET("/referral", publicHandler.GetMyReferral)
			me.POST("/referral/code", publicHandler.EnsureMyReferralCode)
			me.POST("/referral/apply", publicHandler.ApplyReferralCode)
		}

		admin := api.Group("/admin")
		admin.Use(StaffJWTAuthMiddleware(cfg.StaffJWT.SecretKey))
		admin.Use(StaffRBACMiddleware(c.AuthzService))
		{
			admin.GET("/orders", adminHandler.GetAdminOrders)
			admin.GET("/orders/:id", adminHandler.GetAdminOrder)
			admin.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)

			admin.POST("/flash-sales", adminHandler.CreateFlashSale)
			admin.PATCH("/flash-sales/:id/disable", adminHandler.DisableFlashSale)
			admin.POST("/promotions", adminHandler.CreatePromotion)
			admin.PATCH("/promotions/:id/active", adminHandler.SetPromotionActive)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
