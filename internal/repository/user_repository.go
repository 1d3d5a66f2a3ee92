package repository

import (
	"errors"
	"strings"

	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

// UserRepository user data access
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByReferralCode(code string) (*models.User, error)
	Create(user *models.User) error
	SetReferralCode(id uint, code string) (int64, error)
	WithTx(tx *gorm.DB) UserRepository
}

// GormUserRepository GORM implementation
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx binds a transaction
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID returns nil when not found
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode case-insensitive lookup; codes are stored upper-case
func (r *GormUserRepository) GetByReferralCode(code string) (*models.User, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("referral_code = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// SetReferralCode assigns a code only if the user has none yet
func (r *GormUserRepository) SetReferralCode(id uint, code string) (int64, error) {
	result := r.db.Model(&models.User{}).
		Where("id = ? AND referral_code IS NULL", id).
		Update("referral_code", code)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
