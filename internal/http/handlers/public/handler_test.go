package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/constants"
	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/payment/flutterwave"
	"github.com/sela-fruits/sela-store/internal/provider"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	testWebhookSecret = "whsec-test"
	testUserHeader    = "X-Test-User"
)

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

// fakeFlutterwave records the tx_ref of the last checkout and verifies any
// transaction as paid in full for that reference.
type fakeFlutterwave struct {
	mu     sync.Mutex
	txRef  string
	amount string
	server *httptest.Server
}

func newFakeFlutterwave(t *testing.T) *fakeFlutterwave {
	t.Helper()
	fake := &fakeFlutterwave{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v3/payments":
			var payload map[string]interface{}
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &payload)
			fake.mu.Lock()
			fake.txRef, _ = payload["tx_ref"].(string)
			fake.amount = fmt.Sprint(payload["amount"])
			fake.mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.test/pay/abc"}}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v3/transactions/"):
			fake.mu.Lock()
			txRef, amount := fake.txRef, fake.amount
			fake.mu.Unlock()
			_, _ = fmt.Fprintf(w, `{"status":"success","data":{"id":987654,"tx_ref":%q,"status":"successful","amount":%s,"currency":"NGN"}}`, txRef, amount)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"error","message":"not found"}`))
		}
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

type publicTestEnv struct {
	engine    *gin.Engine
	container *provider.Container
	db        *gorm.DB
}

func newPublicTestEnv(t *testing.T, flutterwaveURL string) *publicTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
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

	cfg := &config.Config{
		Order: config.OrderConfig{
			Currency:             "NGN",
			BaseDeliveryFee:      "2000",
			NearShopAreas:        []string{"wuse", "garki"},
			WhatsAppNumber:       "+234 803 000 0000",
			PaymentExpireMinutes: 60,
		},
		Referral: config.ReferralConfig{Threshold: 3, DiscountPercent: "15"},
		Flutterwave: config.FlutterwaveConfig{
			SecretKey:      "FLWSECK_TEST-1",
			WebhookSecret:  testWebhookSecret,
			APIBaseURL:     flutterwaveURL,
			TimeoutSeconds: 5,
		},
	}
	c, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(c.Close)

	h := New(c)
	r := gin.New()
	// stands in for the JWT middleware
	r.Use(func(ctx *gin.Context) {
		if raw := ctx.GetHeader(testUserHeader); raw != "" {
			id, _ := strconv.ParseUint(raw, 10, 64)
			ctx.Set(handlershared.UserIDKey, uint(id))
		}
		ctx.Next()
	})
	api := r.Group("/api/v1")
	api.GET("/public/products", h.GetProducts)
	api.GET("/public/products/:id", h.GetProduct)
	api.GET("/public/delivery-quote", h.GetDeliveryQuote)
	api.POST("/orders/preview", h.PreviewOrder)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/orders/:id/payment", h.InitiatePayment)
	api.POST("/payments/webhook", h.PaymentWebhook)
	api.GET("/me/orders", h.ListMyOrders)
	api.GET("/me/referral", h.GetMyReferral)
	api.POST("/me/referral/code", h.EnsureMyReferralCode)
	api.POST("/me/referral/apply", h.ApplyReferralCode)

	return &publicTestEnv{engine: r, container: c, db: db}
}

func (e *publicTestEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope failed: %v (%s)", err, w.Body.String())
	}
	if env.StatusCode != w.Code {
		t.Fatalf("status_code %d does not match http status %d", env.StatusCode, w.Code)
	}
	return w, env
}

func (e *publicTestEnv) seedProduct(t *testing.T, slug string, price int64, stock int) *models.Product {
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

func (e *publicTestEnv) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email}
	if err := e.container.UserRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data failed: %v (%s)", err, string(env.Data))
	}
}

func guestOrderBody(productID uint, quantity int, address string) map[string]interface{} {
	return map[string]interface{}{
		"items":           []map[string]interface{}{{"productId": productID, "quantity": quantity}},
		"customerName":    "Amina Bello",
		"customerEmail":   "amina@example.com",
		"customerPhone":   "+2348010000001",
		"deliveryAddress": address,
	}
}

func TestGetProductsAppliesFlashSale(t *testing.T) {
	env := newPublicTestEnv(t, "http://127.0.0.1:1")
	dates := env.seedProduct(t, "dates", 5000, 10)
	env.seedProduct(t, "orange", 2500, 10)
	now := time.Now()
	if _, err := env.container.PromotionService.CreateFlashSale(t.Context(), service.CreateFlashSaleInput{
		ProductID: dates.ID,
		SalePrice: models.NewMoneyFromInt(4000),
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create flash sale failed: %v", err)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/public/products", nil, nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("list products want 200 got %d %s", w.Code, resp.Msg)
	}
	var items []struct {
		ID             uint   `json:"id"`
		EffectivePrice string `json:"effectivePrice"`
		PriceSource    string `json:"priceSource"`
	}
	decodeData(t, resp, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 products, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == dates.ID && (item.EffectivePrice != "4000.00" || item.PriceSource != constants.PriceSourceFlashSale) {
			t.Fatalf("flash sale not applied: %+v", item)
		}
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/public/products/999", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing product want 404 got %d", w.Code)
	}
}

func TestGetDeliveryQuote(t *testing.T) {
	env := newPublicTestEnv(t, "http://127.0.0.1:1")
	now := time.Now()
	if _, err := env.container.PromotionService.CreatePromotion(service.CreatePromotionInput{
		Name:      "Ramadan",
		Type:      constants.PromotionTypeRamadanDelivery,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}

	cases := []struct {
		address string
		zone    string
		fee     string
	}{
		{"12 Aminu Kano Crescent, Wuse 2", constants.DeliveryZoneFree, "0.00"},
		{"Lugbe estate", constants.DeliveryZoneHalf, "1000.00"},
	}
	for _, tc := range cases {
		w, resp := env.do(t, http.MethodGet, "/api/v1/public/delivery-quote?subtotal=5000&address="+strings.ReplaceAll(tc.address, " ", "+"), nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("quote want 200 got %d", w.Code)
		}
		var quote struct {
			Zone        string `json:"deliveryZone"`
			DeliveryFee string `json:"deliveryFee"`
		}
		decodeData(t, resp, &quote)
		if quote.Zone != tc.zone || quote.DeliveryFee != tc.fee {
			t.Fatalf("address %q want %s/%s got %+v", tc.address, tc.zone, tc.fee, quote)
		}
	}

	w, _ := env.do(t, http.MethodGet, "/api/v1/public/delivery-quote?subtotal=abc", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid subtotal want 400 got %d", w.Code)
	}
}

func TestGuestCheckoutPaymentFlow(t *testing.T) {
	fake := newFakeFlutterwave(t)
	env := newPublicTestEnv(t, fake.server.URL)
	product := env.seedProduct(t, "watermelon", 5000, 5)

	w, resp := env.do(t, http.MethodPost, "/api/v1/orders/preview", map[string]interface{}{
		"items":           []map[string]interface{}{{"productId": product.ID, "quantity": 2}},
		"deliveryAddress": "Lugbe",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview want 200 got %d %s", w.Code, resp.Msg)
	}
	var quote struct {
		TotalAmount string `json:"totalAmount"`
	}
	decodeData(t, resp, &quote)
	if quote.TotalAmount != "12000.00" {
		t.Fatalf("preview total want 12000.00 got %s", quote.TotalAmount)
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/orders", guestOrderBody(product.ID, 2, "Lugbe"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order want 201 got %d %s", w.Code, resp.Msg)
	}
	var created struct {
		Success     bool   `json:"success"`
		OrderID     string `json:"orderId"`
		TotalAmount string `json:"totalAmount"`
		WhatsAppURL string `json:"whatsappUrl"`
	}
	decodeData(t, resp, &created)
	if !created.Success || !strings.HasPrefix(created.OrderID, "SELA-") {
		t.Fatalf("unexpected create result: %+v", created)
	}
	if created.TotalAmount != quote.TotalAmount {
		t.Fatalf("order total %s differs from preview %s", created.TotalAmount, quote.TotalAmount)
	}
	if !strings.HasPrefix(created.WhatsAppURL, "https://wa.me/2348030000000") {
		t.Fatalf("unexpected whatsapp url %s", created.WhatsAppURL)
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/orders/"+created.OrderID+"/payment", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("initiate payment want 200 got %d %s", w.Code, resp.Msg)
	}
	var session struct {
		TxRef       string `json:"txRef"`
		PaymentLink string `json:"paymentLink"`
	}
	decodeData(t, resp, &session)
	if session.TxRef != created.OrderID || session.PaymentLink == "" {
		t.Fatalf("unexpected payment session: %+v", session)
	}

	body := []byte(fmt.Sprintf(`{"event":"charge.completed","data":{"id":987654,"tx_ref":%q,"status":"successful","amount":12000,"currency":"NGN"}}`, created.OrderID))
	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/webhook", body, map[string]string{
		"flutterwave-signature": "deadbeef",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature want 401 got %d", w.Code)
	}

	signature := map[string]string{"flutterwave-signature": flutterwave.ComputeSignature(testWebhookSecret, body)}
	w, resp = env.do(t, http.MethodPost, "/api/v1/payments/webhook", body, signature)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook want 200 got %d %s", w.Code, resp.Msg)
	}
	var result service.WebhookResult
	decodeData(t, resp, &result)
	if !result.Updated || result.Reason != service.WebhookReasonConfirmed {
		t.Fatalf("unexpected webhook result: %+v", result)
	}

	// a redelivery is acknowledged without changes
	w, resp = env.do(t, http.MethodPost, "/api/v1/payments/webhook", body, signature)
	decodeData(t, resp, &result)
	if w.Code != http.StatusOK || result.Updated || result.Reason != service.WebhookReasonAlreadyPaid {
		t.Fatalf("duplicate webhook should be a no-op, got %d %+v", w.Code, result)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID+"?email=AMINA@example.com", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("guest lookup want 200 got %d %s", w.Code, resp.Msg)
	}
	var order models.Order
	decodeData(t, resp, &order)
	if order.Status != constants.OrderStatusConfirmed || order.PaymentStatus != constants.PaymentStatusSuccess {
		t.Fatalf("order should be confirmed and paid, got %s/%s", order.Status, order.PaymentStatus)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+created.OrderID+"/payment", nil, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("paying twice want 409 got %d", w.Code)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := newPublicTestEnv(t, "http://127.0.0.1:1")
	product := env.seedProduct(t, "pineapple", 2000, 1)

	w, _ := env.do(t, http.MethodPost, "/api/v1/orders", []byte(`{"items":`), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body want 400 got %d", w.Code)
	}

	empty := guestOrderBody(product.ID, 1, "Wuse")
	empty["items"] = []interface{}{}
	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", empty, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty items want 400 got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", guestOrderBody(product.ID, 3, "Wuse"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("insufficient stock want 400 got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", guestOrderBody(4242, 1, "Wuse"), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown product want 404 got %d", w.Code)
	}

	var stock int
	if err := env.db.Model(&models.Product{}).Select("stock").Where("id = ?", product.ID).Scan(&stock).Error; err != nil {
		t.Fatalf("read stock failed: %v", err)
	}
	if stock != 1 {
		t.Fatalf("failed orders must not touch stock, got %d", stock)
	}
}

func TestGetOrderGuestAccess(t *testing.T) {
	env := newPublicTestEnv(t, "http://127.0.0.1:1")
	product := env.seedProduct(t, "mango", 3000, 5)
	_, resp := env.do(t, http.MethodPost, "/api/v1/orders", guestOrderBody(product.ID, 1, "Garki"), nil)
	var created struct {
		OrderID string `json:"orderId"`
	}
	decodeData(t, resp, &created)

	w, _ := env.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("guest lookup without email want 400 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID+"?email=someone@example.com", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("wrong email want 404 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+strings.ToLower(created.OrderID)+"?email=amina@example.com", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lower-case id want 200 got %d", w.Code)
	}
}

func TestCustomerOrdersAndReferral(t *testing.T) {
	env := newPublicTestEnv(t, "http://127.0.0.1:1")
	referrer := env.seedUser(t, "referrer@example.com")
	friend := env.seedUser(t, "friend@example.com")
	product := env.seedProduct(t, "banana", 1500, 10)
	asReferrer := map[string]string{testUserHeader: strconv.FormatUint(uint64(referrer.ID), 10)}
	asFriend := map[string]string{testUserHeader: strconv.FormatUint(uint64(friend.ID), 10)}

	w, resp := env.do(t, http.MethodPost, "/api/v1/me/referral/code", nil, asReferrer)
	if w.Code != http.StatusOK {
		t.Fatalf("ensure code want 200 got %d %s", w.Code, resp.Msg)
	}
	var issued struct {
		Code string `json:"referralCode"`
	}
	decodeData(t, resp, &issued)
	if issued.Code == "" {
		t.Fatalf("expected a referral code")
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/me/referral/apply", map[string]string{"code": issued.Code}, asReferrer)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self referral want 400 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/me/referral/apply", map[string]string{"code": issued.Code}, asFriend)
	if w.Code != http.StatusCreated {
		t.Fatalf("apply code want 201 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/me/referral/apply", map[string]string{"code": issued.Code}, asFriend)
	if w.Code != http.StatusConflict {
		t.Fatalf("second apply want 409 got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/orders", guestOrderBody(product.ID, 2, "Wuse"), asFriend)
	if w.Code != http.StatusCreated {
		t.Fatalf("customer order want 201 got %d %s", w.Code, resp.Msg)
	}
	w, resp = env.do(t, http.MethodGet, "/api/v1/me/orders", nil, asFriend)
	if w.Code != http.StatusOK {
		t.Fatalf("list my orders want 200 got %d", w.Code)
	}
	var orders []models.Order
	decodeData(t, resp, &orders)
	if len(orders) != 1 || orders[0].UserID == nil || *orders[0].UserID != friend.ID {
		t.Fatalf("expected one order owned by friend, got %+v", orders)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/me/orders", nil, asReferrer)
	decodeData(t, resp, &orders)
	if w.Code != http.StatusOK || len(orders) != 0 {
		t.Fatalf("referrer should see no orders, got %d", len(orders))
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/me/referral", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous referral summary want 401 got %d", w.Code)
	}
}
