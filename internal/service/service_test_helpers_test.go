package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testBaseDeliveryFee = 2000

type testServices struct {
	db        *gorm.DB
	orders    *OrderService
	promos    *PromotionService
	referrals *ReferralService
	orderRepo repository.OrderRepository
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func newTestServices(t *testing.T, name string) *testServices {
	t.Helper()
	db := openServiceTestDB(t, name)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	promos := NewPromotionService(
		repository.NewFlashSaleRepository(db),
		repository.NewPromotionRepository(db),
		productRepo,
		[]string{"Wuse", "garki"},
	)
	referrals := NewReferralService(
		repository.NewReferralRepository(db),
		repository.NewUserRepository(db),
		3,
		models.NewMoneyFromInt(15),
	)
	orders := NewOrderService(db, orderRepo, productRepo, promos, referrals, nil, nil, OrderSettings{
		Currency:             constants.DefaultCurrency,
		BaseDeliveryFee:      models.NewMoneyFromInt(testBaseDeliveryFee),
		WhatsAppNumber:       "+234 803 000 0000",
		PaymentExpireMinutes: 30,
	})
	return &testServices{
		db:        db,
		orders:    orders,
		promos:    promos,
		referrals: referrals,
		orderRepo: orderRepo,
	}
}

func seedProduct(t *testing.T, db *gorm.DB, slug string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        slug,
		Slug:        slug,
		Unit:        "kg",
		Price:       models.NewMoneyFromInt(price),
		Stock:       stock,
		MinOrder:    1,
		IsAvailable: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func seedFlashSale(t *testing.T, db *gorm.DB, productID uint, price int64, now time.Time) *models.FlashSale {
	t.Helper()
	sale := &models.FlashSale{
		ProductID: productID,
		SalePrice: models.NewMoneyFromInt(price),
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		IsActive:  true,
	}
	if err := db.Create(sale).Error; err != nil {
		t.Fatalf("create flash sale failed: %v", err)
	}
	return sale
}

func seedDeliveryPromotion(t *testing.T, db *gorm.DB, minOrder int64, now time.Time) *models.Promotion {
	t.Helper()
	promotion := &models.Promotion{
		Name:            "Ramadan delivery",
		Type:            constants.PromotionTypeRamadanDelivery,
		DiscountPercent: models.NewMoneyFromInt(100),
		MinOrderAmount:  models.NewMoneyFromInt(minOrder),
		StartDate:       now.Add(-24 * time.Hour),
		EndDate:         now.Add(24 * time.Hour),
		IsActive:        true,
	}
	if err := db.Create(promotion).Error; err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	return promotion
}

func seedCompletedReferrals(t *testing.T, db *gorm.DB, referrerID uint, count int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < count; i++ {
		referred := seedUser(t, db, fmt.Sprintf("friend%d-%d@example.com", referrerID, i))
		completedAt := now.Add(time.Duration(i) * time.Minute)
		referral := &models.Referral{
			ReferrerID:     referrerID,
			ReferredUserID: referred.ID,
			Status:         constants.ReferralStatusCompleted,
			CompletedAt:    &completedAt,
		}
		if err := db.Create(referral).Error; err != nil {
			t.Fatalf("create referral failed: %v", err)
		}
	}
}

func checkoutInput(address string, items ...CreateOrderItem) CreateOrderInput {
	return CreateOrderInput{
		Items:           items,
		CustomerName:    "Amina Bello",
		CustomerEmail:   "Amina@Example.com",
		CustomerPhone:   "+2348030000000",
		DeliveryAddress: address,
	}
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) *models.Product {
	t.Helper()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	return &product
}

func uintPtr(v uint) *uint {
	return &v
}
