package repository

import (
	"errors"
	"time"

	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

// FlashSaleRepository flash sale data access
type FlashSaleRepository interface {
	Create(sale *models.FlashSale) error
	GetByID(id uint) (*models.FlashSale, error)
	Update(sale *models.FlashSale) error
	ListActiveByProducts(productIDs []uint, now time.Time) ([]models.FlashSale, error)
	WithTx(tx *gorm.DB) FlashSaleRepository
}

// GormFlashSaleRepository GORM implementation
type GormFlashSaleRepository struct {
	db *gorm.DB
}

// NewFlashSaleRepository creates a flash sale repository
func NewFlashSaleRepository(db *gorm.DB) *GormFlashSaleRepository {
	return &GormFlashSaleRepository{db: db}
}

// WithTx binds a transaction
func (r *GormFlashSaleRepository) WithTx(tx *gorm.DB) FlashSaleRepository {
	if tx == nil {
		return r
	}
	return &GormFlashSaleRepository{db: tx}
}

// Create inserts a flash sale
func (r *GormFlashSaleRepository) Create(sale *models.FlashSale) error {
	isActive := sale.IsActive
	if err := r.db.Create(sale).Error; err != nil {
		return err
	}
	// is_active defaults to true in the schema, so an inactive row needs an explicit write
	if !isActive {
		sale.IsActive = false
		return r.db.Model(sale).Update("is_active", false).Error
	}
	return nil
}

// GetByID returns nil when not found
func (r *GormFlashSaleRepository) GetByID(id uint) (*models.FlashSale, error) {
	var sale models.FlashSale
	if err := r.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// Update saves a flash sale
func (r *GormFlashSaleRepository) Update(sale *models.FlashSale) error {
	return r.db.Save(sale).Error
}

// ListActiveByProducts returns sales running at now, cheapest first per product,
// newest first among equal prices.
func (r *GormFlashSaleRepository) ListActiveByProducts(productIDs []uint, now time.Time) ([]models.FlashSale, error) {
	if len(productIDs) == 0 {
		return []models.FlashSale{}, nil
	}
	var sales []models.FlashSale
	err := r.db.Model(&models.FlashSale{}).
		Where("product_id IN ?", productIDs).
		Where("is_active = ?", true).
		Where("start_time <= ? AND end_time > ?", now.UTC(), now.UTC()).
		Order("product_id asc, sale_price asc, id desc").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
