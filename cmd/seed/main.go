package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/provider"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/joho/godotenv"
)

type fruitSeed struct {
	name     string
	unit     string
	price    string
	discount string
	stock    int
	minOrder int
}

var fruits = []fruitSeed{
	{name: "Medjool Dates", unit: "kg", price: "12000", discount: "10500", stock: 80, minOrder: 1},
	{name: "Ajwa Dates", unit: "kg", price: "18000", stock: 40, minOrder: 1},
	{name: "Watermelon", unit: "piece", price: "3500", stock: 60, minOrder: 1},
	{name: "Pineapple", unit: "piece", price: "2000", discount: "1800", stock: 100, minOrder: 2},
	{name: "Mango Basket", unit: "basket", price: "9000", stock: 25, minOrder: 1},
	{name: "Orange", unit: "kg", price: "2500", stock: 150, minOrder: 2},
	{name: "Banana Bunch", unit: "piece", price: "1500", stock: 90, minOrder: 1},
	{name: "Pawpaw", unit: "piece", price: "2200", stock: 0, minOrder: 1},
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	// seeding needs no background infrastructure
	cfg.Queue.Enabled = false
	cfg.Kafka.Enabled = false

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("database init failed: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("database migrate failed: %v", err)
	}

	c, err := provider.NewContainer(cfg, models.DB)
	if err != nil {
		stdLog.Fatalf("container init failed: %v", err)
	}
	defer c.Close()

	var existing int64
	if err := models.DB.Model(&models.Product{}).Count(&existing).Error; err != nil {
		stdLog.Fatalf("count products failed: %v", err)
	}
	if existing > 0 {
		logger.Infow("seed_skipped", "reason", "catalog not empty", "products", existing)
		printTokens(cfg, stdLog.Printf)
		return
	}

	ctx := context.Background()
	now := time.Now()
	var products []*models.Product
	for _, fruit := range fruits {
		input := service.CreateProductInput{
			Name:     fruit.name,
			Unit:     fruit.unit,
			Price:    mustMoney(fruit.price),
			Stock:    fruit.stock,
			MinOrder: fruit.minOrder,
		}
		if fruit.discount != "" {
			discount := mustMoney(fruit.discount)
			input.DiscountPrice = &discount
		}
		product, err := c.ProductService.Create(input)
		if err != nil {
			stdLog.Fatalf("create product %s failed: %v", fruit.name, err)
		}
		products = append(products, product)
	}

	if _, err := c.PromotionService.CreatePromotion(service.CreatePromotionInput{
		Name:      "Ramadan Free Delivery",
		Type:      constants.PromotionTypeRamadanDelivery,
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now.AddDate(0, 0, 30),
	}); err != nil {
		stdLog.Fatalf("create ramadan promotion failed: %v", err)
	}

	if _, err := c.PromotionService.CreateFlashSale(ctx, service.CreateFlashSaleInput{
		ProductID: products[0].ID,
		SalePrice: mustMoney("9500"),
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(48 * time.Hour),
	}); err != nil {
		stdLog.Fatalf("create flash sale failed: %v", err)
	}

	users := []models.User{
		{Name: "Amina Bello", Email: "amina@example.com", Phone: "+2348010000001"},
		{Name: "Yusuf Okafor", Email: "yusuf@example.com", Phone: "+2348010000002"},
	}
	for i := range users {
		if err := c.UserRepo.Create(&users[i]); err != nil {
			stdLog.Fatalf("create user %s failed: %v", users[i].Email, err)
		}
	}
	code, err := c.ReferralService.EnsureReferralCode(users[0].ID)
	if err != nil {
		stdLog.Fatalf("issue referral code failed: %v", err)
	}
	if _, err := c.ReferralService.ApplyReferralCode(users[1].ID, code); err != nil {
		stdLog.Fatalf("apply referral code failed: %v", err)
	}

	logger.Infow("seed_completed",
		"products", len(products),
		"users", len(users),
		"referral_code", code,
	)
	printTokens(cfg, stdLog.Printf)
}

func printTokens(cfg *config.Config, printf func(string, ...interface{})) {
	ttl := 30 * 24 * time.Hour
	if token, err := service.GenerateUserJWT(cfg.UserJWT.SecretKey, 1, "amina@example.com", ttl); err == nil {
		printf("demo customer token: %s", token)
	}
	for i, role := range []string{constants.StaffRoleOwner, constants.StaffRoleDispatcher, constants.StaffRoleMerchandiser} {
		token, err := service.GenerateStaffJWT(cfg.StaffJWT.SecretKey, uint(i+1), role, ttl)
		if err != nil {
			continue
		}
		printf("demo %s token: %s", role, token)
	}
}

func mustMoney(raw string) models.Money {
	value, err := models.ParseMoney(raw)
	if err != nil {
		panic(fmt.Sprintf("invalid seed amount %q: %v", raw, err))
	}
	return value
}
