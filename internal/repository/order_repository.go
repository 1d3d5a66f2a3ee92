package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

// OrderRepository order data access
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id string) (*models.Order, error)
	GetByPaymentRef(ref string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	TransitionStatus(id string, from []string, updates map[string]interface{}) (int64, error)
	MarkPaid(id, providerTransactionID string, paidAt time.Time) (int64, error)
	SetPaymentRef(id, ref, link string) (int64, error)
	ListExpiredPendingIDs(now time.Time, limit int) ([]string, error)
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM implementation
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx binds a transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// Create inserts the order header and its items
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID returns nil when not found
func (r *GormOrderRepository) GetByID(id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.withItems(r.db).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByPaymentRef looks up by the stored provider reference
func (r *GormOrderRepository) GetByPaymentRef(ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.withItems(r.db).Where("payment_ref = ?", ref).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List paginated orders, newest first
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := strings.TrimSpace(filter.PaymentStatus); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if email := strings.TrimSpace(filter.CustomerEmail); email != "" {
		query = query.Where("LOWER(customer_email) = ?", strings.ToLower(email))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var orders []models.Order
	if err := r.withItems(query).Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// TransitionStatus applies updates only while the order is in one of the from statuses
func (r *GormOrderRepository) TransitionStatus(id string, from []string, updates map[string]interface{}) (int64, error) {
	if strings.TrimSpace(id) == "" || len(from) == 0 || len(updates) == 0 {
		return 0, errors.New("invalid order transition params")
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkPaid confirms an unpaid PENDING order; zero rows means it was already paid or moved on
func (r *GormOrderRepository) MarkPaid(id, providerTransactionID string, paidAt time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, constants.OrderStatusPending, constants.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":                  constants.OrderStatusConfirmed,
			"payment_status":          constants.PaymentStatusSuccess,
			"paid_at":                 paidAt,
			"provider_transaction_id": providerTransactionID,
			"updated_at":              paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SetPaymentRef stores the provider reference and hosted link on an unpaid order
func (r *GormOrderRepository) SetPaymentRef(id, ref, link string) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, constants.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_ref":  ref,
			"payment_link": link,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListExpiredPendingIDs unpaid orders past their expiry, oldest first
func (r *GormOrderRepository) ListExpiredPendingIDs(now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.Model(&models.Order{}).
		Where("status = ? AND payment_status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			constants.OrderStatusPending, constants.PaymentStatusPending, now.UTC()).
		Order("expires_at asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
