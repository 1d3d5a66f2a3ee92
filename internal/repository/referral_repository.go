package repository

import (
	"errors"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/models"

	"gorm.io/gorm"
)

// ReferralRepository referral data access
type ReferralRepository interface {
	Create(referral *models.Referral) error
	GetByReferredUserID(userID uint) (*models.Referral, error)
	CountByReferrerAndStatus(referrerID uint, statuses ...string) (int64, error)
	ListByReferrer(referrerID uint) ([]models.Referral, error)
	ConsumeOldestCompleted(referrerID uint, limit int, orderID string, now time.Time) (int64, error)
	CompletePending(referredUserID uint, orderID string, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) ReferralRepository
}

// GormReferralRepository GORM implementation
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository creates a referral repository
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx binds a transaction
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Create inserts a referral; the unique index on referred_user_id rejects a second referral
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// GetByReferredUserID returns nil when the user was never referred
func (r *GormReferralRepository) GetByReferredUserID(userID uint) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.Where("referred_user_id = ?", userID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// CountByReferrerAndStatus counts referrals of one referrer in the given statuses
func (r *GormReferralRepository) CountByReferrerAndStatus(referrerID uint, statuses ...string) (int64, error) {
	query := r.db.Model(&models.Referral{}).Where("referrer_id = ?", referrerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListByReferrer newest first
func (r *GormReferralRepository) ListByReferrer(referrerID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	if err := r.db.Where("referrer_id = ?", referrerID).Order("id desc").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}

// ConsumeOldestCompleted flips up to limit of the oldest COMPLETED referrals to REWARDED
// in one statement. Rows already flipped by a concurrent transaction fail the status
// predicate, so the caller must compare the affected count with limit.
func (r *GormReferralRepository) ConsumeOldestCompleted(referrerID uint, limit int, orderID string, now time.Time) (int64, error) {
	if referrerID == 0 || limit <= 0 {
		return 0, errors.New("invalid referral consume params")
	}
	oldest := r.db.Model(&models.Referral{}).
		Select("id").
		Where("referrer_id = ? AND status = ?", referrerID, constants.ReferralStatusCompleted).
		Order("completed_at asc, id asc").
		Limit(limit)
	result := r.db.Model(&models.Referral{}).
		Where("id IN (?)", oldest).
		Where("status = ?", constants.ReferralStatusCompleted).
		Updates(map[string]interface{}{
			"status":            constants.ReferralStatusRewarded,
			"rewarded_at":       now,
			"rewarded_order_id": orderID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CompletePending marks the referred user's PENDING referral COMPLETED
func (r *GormReferralRepository) CompletePending(referredUserID uint, orderID string, now time.Time) (int64, error) {
	if referredUserID == 0 || orderID == "" {
		return 0, errors.New("invalid referral complete params")
	}
	result := r.db.Model(&models.Referral{}).
		Where("referred_user_id = ? AND status = ?", referredUserID, constants.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":             constants.ReferralStatusCompleted,
			"completed_order_id": orderID,
			"completed_at":       now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
