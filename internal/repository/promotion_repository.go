package repository

import (
	"errors"
	"time"

	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository promotion data access
type PromotionRepository interface {
	Create(promotion *models.Promotion) error
	GetByID(id uint) (*models.Promotion, error)
	Update(promotion *models.Promotion) error
	ListActiveByType(promotionType string, now time.Time) ([]models.Promotion, error)
	WithTx(tx *gorm.DB) PromotionRepository
}

// GormPromotionRepository GORM implementation
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository creates a promotion repository
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx binds a transaction
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) PromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// Create inserts a promotion
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	isActive := promotion.IsActive
	if err := r.db.Create(promotion).Error; err != nil {
		return err
	}
	// is_active defaults to true in the schema, so an inactive row needs an explicit write
	if !isActive {
		promotion.IsActive = false
		return r.db.Model(promotion).Update("is_active", false).Error
	}
	return nil
}

// GetByID returns nil when not found
func (r *GormPromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// Update saves a promotion
func (r *GormPromotionRepository) Update(promotion *models.Promotion) error {
	return r.db.Save(promotion).Error
}

// ListActiveByType returns promotions running at now, largest discount first,
// newest first among equal discounts.
func (r *GormPromotionRepository) ListActiveByType(promotionType string, now time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := r.db.Model(&models.Promotion{}).
		Where("type = ?", promotionType).
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date > ?", now.UTC(), now.UTC()).
		Order("discount_percent desc, id desc").
		Find(&promotions).Error
	if err != nil {
		return nil, err
	}
	return promotions, nil
}
