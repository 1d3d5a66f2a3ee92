package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/constants"
	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/provider"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type adminTestEnv struct {
	engine    *gin.Engine
	container *provider.Container
	db        *gorm.DB
}

func newAdminTestEnv(t *testing.T) *adminTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
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

	c, err := provider.NewContainer(&config.Config{
		Order: config.OrderConfig{
			Currency:             "NGN",
			BaseDeliveryFee:      "2000",
			NearShopAreas:        []string{"wuse"},
			PaymentExpireMinutes: 60,
		},
		Referral: config.ReferralConfig{Threshold: 3, DiscountPercent: "15"},
	}, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(c.Close)

	h := New(c)
	r := gin.New()
	admin := r.Group("/api/v1/admin")
	// stands in for staff auth
	admin.Use(func(ctx *gin.Context) {
		ctx.Set(handlershared.StaffIDKey, uint(1))
		ctx.Set(handlershared.StaffRoleKey, constants.StaffRoleOwner)
		ctx.Next()
	})
	admin.GET("/orders", h.GetAdminOrders)
	admin.GET("/orders/:id", h.GetAdminOrder)
	admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	admin.POST("/flash-sales", h.CreateFlashSale)
	admin.PATCH("/flash-sales/:id/disable", h.DisableFlashSale)
	admin.POST("/promotions", h.CreatePromotion)
	admin.PATCH("/promotions/:id/active", h.SetPromotionActive)

	return &adminTestEnv{engine: r, container: c, db: db}
}

func (e *adminTestEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope failed: %v (%s)", err, w.Body.String())
	}
	return w, env
}

func (e *adminTestEnv) seedProduct(t *testing.T, slug string, price int64, stock int) *models.Product {
	t.Helper()
	product, err := e.container.ProductService.Create(service.CreateProductInput{
		Name:  slug,
		Slug:  slug,
		Price: models.NewMoneyFromInt(price),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *adminTestEnv) placeOrder(t *testing.T, productID uint, quantity int, email string) string {
	t.Helper()
	result, err := e.container.OrderService.CreateOrder(t.Context(), nil, service.CreateOrderInput{
		Items:           []service.CreateOrderItem{{ProductID: productID, Quantity: quantity}},
		CustomerName:    "Yusuf",
		CustomerEmail:   email,
		CustomerPhone:   "+2348010000002",
		DeliveryAddress: "Garki Area 11",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return result.OrderID
}

func (e *adminTestEnv) stock(t *testing.T, productID uint) int {
	t.Helper()
	var stock int
	if err := e.db.Model(&models.Product{}).Select("stock").Where("id = ?", productID).Scan(&stock).Error; err != nil {
		t.Fatalf("read stock failed: %v", err)
	}
	return stock
}

func decodeOrder(t *testing.T, env envelope) models.Order {
	t.Helper()
	var order models.Order
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	return order
}

func TestUpdateOrderStatusFlow(t *testing.T) {
	env := newAdminTestEnv(t)
	product := env.seedProduct(t, "dates", 5000, 10)
	orderID := env.placeOrder(t, product.ID, 2, "yusuf@example.com")
	path := "/api/v1/admin/orders/" + orderID + "/status"

	w, _ := env.do(t, http.MethodPatch, path, map[string]string{"status": constants.OrderStatusProcessing})
	if w.Code != http.StatusConflict {
		t.Fatalf("unpaid order cannot be processed, want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPatch, path, map[string]string{"status": "teleported"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status want 400 got %d", w.Code)
	}

	if _, err := env.container.OrderRepo.MarkPaid(orderID, "987654", time.Now()); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	for _, status := range []string{constants.OrderStatusProcessing, constants.OrderStatusShipped, constants.OrderStatusDelivered} {
		w, resp := env.do(t, http.MethodPatch, path, map[string]string{"status": strings.ToLower(status)})
		if w.Code != http.StatusOK {
			t.Fatalf("move to %s want 200 got %d %s", status, w.Code, resp.Msg)
		}
		if got := decodeOrder(t, resp).Status; got != status {
			t.Fatalf("status want %s got %s", status, got)
		}
	}

	w, _ = env.do(t, http.MethodPatch, path, map[string]string{"status": constants.OrderStatusCancelled})
	if w.Code != http.StatusConflict {
		t.Fatalf("delivered order cannot be cancelled, want 409 got %d", w.Code)
	}
	if got := env.stock(t, product.ID); got != 8 {
		t.Fatalf("stock should stay decremented, got %d", got)
	}
}

func TestCancelOrderRestocksOnce(t *testing.T) {
	env := newAdminTestEnv(t)
	product := env.seedProduct(t, "orange", 2500, 6)
	orderID := env.placeOrder(t, product.ID, 4, "amina@example.com")
	if got := env.stock(t, product.ID); got != 2 {
		t.Fatalf("stock after order want 2 got %d", got)
	}
	path := "/api/v1/admin/orders/" + orderID + "/status"

	w, resp := env.do(t, http.MethodPatch, path, map[string]string{"status": "CANCELLED"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel want 200 got %d %s", w.Code, resp.Msg)
	}
	order := decodeOrder(t, resp)
	if order.Status != constants.OrderStatusCancelled || order.CancelReason != staffCancelReason {
		t.Fatalf("unexpected cancelled order: %s %q", order.Status, order.CancelReason)
	}
	if got := env.stock(t, product.ID); got != 6 {
		t.Fatalf("stock after cancel want 6 got %d", got)
	}

	w, resp = env.do(t, http.MethodPatch, path, map[string]string{"status": "CANCELLED", "reason": "again"})
	if w.Code != http.StatusOK {
		t.Fatalf("second cancel is a no-op, want 200 got %d %s", w.Code, resp.Msg)
	}
	order = decodeOrder(t, resp)
	if order.Status != constants.OrderStatusCancelled || order.CancelReason != staffCancelReason {
		t.Fatalf("second cancel must not rewrite the order: %s %q", order.Status, order.CancelReason)
	}
	if got := env.stock(t, product.ID); got != 6 {
		t.Fatalf("stock must be restored only once, got %d", got)
	}
}

func TestGetAdminOrders(t *testing.T) {
	env := newAdminTestEnv(t)
	product := env.seedProduct(t, "mango", 3000, 20)
	first := env.placeOrder(t, product.ID, 1, "a@example.com")
	env.placeOrder(t, product.ID, 1, "b@example.com")
	if _, err := env.container.OrderRepo.MarkPaid(first, "1", time.Now()); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/admin/orders?status=confirmed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list want 200 got %d %s", w.Code, resp.Msg)
	}
	var orders []models.Order
	if err := json.Unmarshal(resp.Data, &orders); err != nil {
		t.Fatalf("decode orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != first {
		t.Fatalf("expected only the confirmed order, got %d", len(orders))
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/admin/orders?created_from=yesterday", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad time filter want 400 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/admin/orders?status=LOST", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter want 400 got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/admin/orders/"+first, nil)
	if w.Code != http.StatusOK || decodeOrder(t, resp).ID != first {
		t.Fatalf("get order want 200 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/admin/orders/SELA-0000-0000-0000", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order want 404 got %d", w.Code)
	}
}

func TestFlashSaleAdmin(t *testing.T) {
	env := newAdminTestEnv(t)
	product := env.seedProduct(t, "watermelon", 3500, 10)
	now := time.Now().UTC()

	w, _ := env.do(t, http.MethodPost, "/api/v1/admin/flash-sales", map[string]interface{}{
		"productId": product.ID,
		"salePrice": "4000",
		"startTime": now.Add(-time.Hour),
		"endTime":   now.Add(time.Hour),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("sale above current price want 400 got %d", w.Code)
	}

	w, resp := env.do(t, http.MethodPost, "/api/v1/admin/flash-sales", map[string]interface{}{
		"productId": product.ID,
		"salePrice": 3000,
		"startTime": now.Add(-time.Hour),
		"endTime":   now.Add(time.Hour),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create flash sale want 201 got %d %s", w.Code, resp.Msg)
	}
	var sale models.FlashSale
	if err := json.Unmarshal(resp.Data, &sale); err != nil {
		t.Fatalf("decode sale failed: %v", err)
	}

	price, err := env.container.PromotionService.GetFlashSalePrice(t.Context(), product.ID, time.Now())
	if err != nil || price == nil {
		t.Fatalf("flash sale should be live, err=%v", err)
	}

	w, _ = env.do(t, http.MethodPatch, "/api/v1/admin/flash-sales/"+strconv.FormatUint(uint64(sale.ID), 10)+"/disable", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("disable want 200 got %d", w.Code)
	}
	price, err = env.container.PromotionService.GetFlashSalePrice(t.Context(), product.ID, time.Now())
	if err != nil || price != nil {
		t.Fatalf("disabled flash sale should not apply, price=%v err=%v", price, err)
	}

	w, _ = env.do(t, http.MethodPatch, "/api/v1/admin/flash-sales/abc/disable", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id want 400 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPatch, "/api/v1/admin/flash-sales/999/disable", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing sale want 404 got %d", w.Code)
	}
}

func TestPromotionAdmin(t *testing.T) {
	env := newAdminTestEnv(t)
	now := time.Now().UTC()

	w, _ := env.do(t, http.MethodPost, "/api/v1/admin/promotions", map[string]interface{}{
		"name":            "Broken",
		"type":            "BOGO",
		"startDate":       now,
		"endDate":         now.Add(time.Hour),
		"discountPercent": 10,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown type want 400 got %d", w.Code)
	}

	w, resp := env.do(t, http.MethodPost, "/api/v1/admin/promotions", map[string]interface{}{
		"name":      "Ramadan Free Delivery",
		"type":      "ramadan_delivery",
		"startDate": now.Add(-time.Hour),
		"endDate":   now.Add(24 * time.Hour),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create promotion want 201 got %d %s", w.Code, resp.Msg)
	}
	var promotion models.Promotion
	if err := json.Unmarshal(resp.Data, &promotion); err != nil {
		t.Fatalf("decode promotion failed: %v", err)
	}
	if promotion.Type != constants.PromotionTypeRamadanDelivery || !promotion.IsActive {
		t.Fatalf("unexpected promotion: %+v", promotion)
	}

	path := "/api/v1/admin/promotions/" + strconv.FormatUint(uint64(promotion.ID), 10) + "/active"
	w, resp = env.do(t, http.MethodPatch, path, map[string]bool{"isActive": false})
	if w.Code != http.StatusOK {
		t.Fatalf("toggle want 200 got %d %s", w.Code, resp.Msg)
	}
	active, err := env.container.PromotionService.ActiveDeliveryPromotion(time.Now())
	if err != nil || active != nil {
		t.Fatalf("disabled promotion should not be active, got %v err=%v", active, err)
	}

	w, _ = env.do(t, http.MethodPatch, path, map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing isActive want 400 got %d", w.Code)
	}
}
