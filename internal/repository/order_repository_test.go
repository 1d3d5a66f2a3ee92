package repository

import (
	"testing"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

func createTestOrder(t *testing.T, db *gorm.DB, id string, status string) *models.Order {
	t.Helper()
	repo := NewOrderRepository(db)
	order := &models.Order{
		ID:              id,
		CustomerName:    "Amina",
		CustomerEmail:   "amina@example.com",
		CustomerPhone:   "+2348000000000",
		DeliveryAddress: "12 Wuse Zone 4",
		Currency:        constants.DefaultCurrency,
		Subtotal:        models.NewMoneyFromInt(3000),
		DeliveryZone:    constants.DeliveryZoneFull,
		TotalAmount:     models.NewMoneyFromInt(5000),
		DeliveryFee:     models.NewMoneyFromInt(2000),
		Status:          status,
		PaymentStatus:   constants.PaymentStatusPending,
	}
	items := []models.OrderItem{{
		ProductID:   1,
		ProductName: "mango",
		Quantity:    2,
		PriceAtTime: models.NewMoneyFromInt(1500),
		PriceSource: constants.PriceSourceBase,
		LineTotal:   models.NewMoneyFromInt(3000),
	}}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestOrderCreateAndLoadItems(t *testing.T) {
	db := openRepositoryTestDB(t, "order_create")
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "SELA-AAAA-BBBB-CCCC", constants.OrderStatusPending)

	order, err := repo.GetByID("SELA-AAAA-BBBB-CCCC")
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].OrderID != order.ID {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if !order.TotalAmount.Equal(models.NewMoneyFromInt(5000).Decimal) {
		t.Fatalf("total want 5000 got %s", order.TotalAmount)
	}

	missing, err := repo.GetByID("SELA-0000-0000-0000")
	if err != nil || missing != nil {
		t.Fatalf("missing order should return nil,nil got %v %v", missing, err)
	}
}

func TestOrderMarkPaidIsConditional(t *testing.T) {
	db := openRepositoryTestDB(t, "order_mark_paid")
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "SELA-PAID-0000-0001", constants.OrderStatusPending)
	paidAt := time.Now().UTC().Truncate(time.Second)

	affected, err := repo.MarkPaid("SELA-PAID-0000-0001", "4421", paidAt)
	if err != nil || affected != 1 {
		t.Fatalf("mark paid want 1 row got %d err=%v", affected, err)
	}
	affected, err = repo.MarkPaid("SELA-PAID-0000-0001", "4421", paidAt)
	if err != nil || affected != 0 {
		t.Fatalf("second mark paid should be a no-op, got %d err=%v", affected, err)
	}

	order, _ := repo.GetByID("SELA-PAID-0000-0001")
	if order.Status != constants.OrderStatusConfirmed || order.PaymentStatus != constants.PaymentStatusSuccess {
		t.Fatalf("unexpected status %s/%s", order.Status, order.PaymentStatus)
	}
	if order.PaidAt == nil {
		t.Fatalf("paid_at should be stamped")
	}
}

func TestOrderMarkPaidSkipsCancelled(t *testing.T) {
	db := openRepositoryTestDB(t, "order_mark_paid_cancelled")
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "SELA-CNCL-0000-0001", constants.OrderStatusCancelled)

	affected, err := repo.MarkPaid("SELA-CNCL-0000-0001", "1", time.Now())
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("cancelled order must not be marked paid")
	}
}

func TestOrderTransitionStatus(t *testing.T) {
	db := openRepositoryTestDB(t, "order_transition")
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "SELA-TRAN-0000-0001", constants.OrderStatusConfirmed)

	affected, err := repo.TransitionStatus("SELA-TRAN-0000-0001",
		[]string{constants.OrderStatusPending},
		map[string]interface{}{"status": constants.OrderStatusShipped})
	if err != nil || affected != 0 {
		t.Fatalf("transition from wrong status should not apply, got %d err=%v", affected, err)
	}
	affected, err = repo.TransitionStatus("SELA-TRAN-0000-0001",
		[]string{constants.OrderStatusConfirmed},
		map[string]interface{}{"status": constants.OrderStatusProcessing})
	if err != nil || affected != 1 {
		t.Fatalf("transition want 1 row got %d err=%v", affected, err)
	}
}

func TestOrderPaymentRefAndList(t *testing.T) {
	db := openRepositoryTestDB(t, "order_payment_ref")
	repo := NewOrderRepository(db)
	createTestOrder(t, db, "SELA-REFS-0000-0001", constants.OrderStatusPending)
	createTestOrder(t, db, "SELA-REFS-0000-0002", constants.OrderStatusPending)

	affected, err := repo.SetPaymentRef("SELA-REFS-0000-0001", "SELA-REFS-0000-0001", "https://checkout.example/pay")
	if err != nil || affected != 1 {
		t.Fatalf("set payment ref want 1 row got %d err=%v", affected, err)
	}
	order, err := repo.GetByPaymentRef("SELA-REFS-0000-0001")
	if err != nil || order == nil {
		t.Fatalf("lookup by ref failed: %v", err)
	}
	if order.PaymentLink != "https://checkout.example/pay" {
		t.Fatalf("unexpected payment link %s", order.PaymentLink)
	}

	orders, total, err := repo.List(OrderListFilter{Page: 1, PageSize: 1, CustomerEmail: "AMINA@example.com"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(orders) != 1 {
		t.Fatalf("unexpected list total=%d len=%d", total, len(orders))
	}
}

func TestOrderTimeFiltersAcceptZoneOffsets(t *testing.T) {
	db := openRepositoryTestDB(t, "order_time_offsets")
	repo := NewOrderRepository(db)
	zone := time.FixedZone("UTC+5", 5*60*60)
	order := createTestOrder(t, db, "SELA-TIME-ZONE-0001", constants.OrderStatusPending)
	expiredAt := time.Now().UTC().Add(-time.Minute)
	if err := db.Model(order).Update("expires_at", expiredAt).Error; err != nil {
		t.Fatalf("set expiry failed: %v", err)
	}

	from := time.Now().Add(-30 * time.Minute).In(zone)
	orders, total, err := repo.List(OrderListFilter{Page: 1, PageSize: 10, CreatedFrom: &from})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("order created after %s should be listed, total=%d", from, total)
	}

	ids, err := repo.ListExpiredPendingIDs(time.Now().In(zone), 10)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != order.ID {
		t.Fatalf("expired order should be found, got %v", ids)
	}
}
