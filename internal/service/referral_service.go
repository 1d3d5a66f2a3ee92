package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"

	"gorm.io/gorm"
)

const (
	referralCodeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralCodeLength       = 8
	referralCodeMaxAttempts  = 5
	defaultReferralThreshold = 3
)

var errReferralBatchShort = errors.New("referral batch already consumed")

// ReferralService referral links and threshold rewards
type ReferralService struct {
	referralRepo    repository.ReferralRepository
	userRepo        repository.UserRepository
	threshold       int
	discountPercent models.Money
}

// NewReferralService creates the referral service
func NewReferralService(referralRepo repository.ReferralRepository, userRepo repository.UserRepository, threshold int, discountPercent models.Money) *ReferralService {
	if threshold <= 0 {
		threshold = defaultReferralThreshold
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		discountPercent = models.Money{}
	}
	return &ReferralService{
		referralRepo:    referralRepo,
		userRepo:        userRepo,
		threshold:       threshold,
		discountPercent: discountPercent,
	}
}

// ReferralReward eligibility snapshot for a referrer
type ReferralReward struct {
	Eligible        bool         `json:"eligible"`
	DiscountPercent models.Money `json:"discountPercent"`
	Threshold       int          `json:"threshold"`
	Completed       int64        `json:"completed"`
	Rewarded        int64        `json:"rewarded"`
	Available       int64        `json:"available"`
}

// ReferralSummary what a customer sees about their referrals
type ReferralSummary struct {
	Code      *string           `json:"referralCode"`
	Reward    ReferralReward    `json:"reward"`
	Referrals []models.Referral `json:"referrals"`
}

// Threshold completed referrals needed per reward
func (s *ReferralService) Threshold() int {
	return s.threshold
}

// CheckReferralReward counts unconsumed completions. Completed includes rewarded rows,
// so available = completed - rewarded never goes negative.
func (s *ReferralService) CheckReferralReward(userID uint) (*ReferralReward, error) {
	reward := &ReferralReward{Threshold: s.threshold, DiscountPercent: models.NewMoneyFromInt(0)}
	if userID == 0 {
		return reward, nil
	}
	completed, err := s.referralRepo.CountByReferrerAndStatus(userID, constants.ReferralStatusCompleted, constants.ReferralStatusRewarded)
	if err != nil {
		return nil, err
	}
	rewarded, err := s.referralRepo.CountByReferrerAndStatus(userID, constants.ReferralStatusRewarded)
	if err != nil {
		return nil, err
	}
	reward.Completed = completed
	reward.Rewarded = rewarded
	reward.Available = completed - rewarded
	if reward.Available < 0 {
		reward.Available = 0
	}
	if reward.Available >= int64(s.threshold) && s.discountPercent.IsPositive() {
		reward.Eligible = true
		reward.DiscountPercent = s.discountPercent
	}
	return reward, nil
}

// ConsumeReward flips exactly one batch of completed referrals to REWARDED inside tx.
// It runs in a savepoint: when a concurrent order already took part of the batch,
// nothing is consumed and false is returned.
func (s *ReferralService) ConsumeReward(tx *gorm.DB, userID uint, orderID string, now time.Time) (bool, error) {
	if tx == nil || userID == 0 {
		return false, nil
	}
	err := tx.Transaction(func(inner *gorm.DB) error {
		affected, err := s.referralRepo.WithTx(inner).ConsumeOldestCompleted(userID, s.threshold, orderID, now)
		if err != nil {
			return err
		}
		if affected != int64(s.threshold) {
			return errReferralBatchShort
		}
		return nil
	})
	if errors.Is(err, errReferralBatchShort) {
		logger.Warnw("referral_reward_consume_short",
			"referrer_id", userID,
			"order_id", orderID,
			"threshold", s.threshold,
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompleteReferral marks the user's pending referral completed by this order.
// Later orders find nothing pending and are a no-op.
func (s *ReferralService) CompleteReferral(userID uint, orderID string) (bool, error) {
	if userID == 0 || strings.TrimSpace(orderID) == "" {
		return false, nil
	}
	affected, err := s.referralRepo.CompletePending(userID, orderID, time.Now())
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// EnsureReferralCode returns the user's code, issuing one on first use
func (s *ReferralService) EnsureReferralCode(userID uint) (string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for attempt := 0; attempt < referralCodeMaxAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		affected, err := s.userRepo.SetReferralCode(userID, code)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return "", err
		}
		if affected == 1 {
			return code, nil
		}
		// another request issued a code first
		reloaded, err := s.userRepo.GetByID(userID)
		if err != nil {
			return "", err
		}
		if reloaded != nil && reloaded.ReferralCode != nil {
			return *reloaded.ReferralCode, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// ApplyReferralCode links the user to the code's owner. A user can be referred once.
func (s *ReferralService) ApplyReferralCode(userID uint, code string) (*models.Referral, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrReferralCodeInvalid
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	referrer, err := s.userRepo.GetByReferralCode(code)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrReferralCodeInvalid
	}
	if referrer.ID == userID {
		return nil, ErrReferralSelf
	}
	existing, err := s.referralRepo.GetByReferredUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReferralAlreadyUsed
	}

	referral := &models.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: userID,
		Status:         constants.ReferralStatusPending,
	}
	if err := s.referralRepo.Create(referral); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrReferralAlreadyUsed
		}
		return nil, err
	}
	return referral, nil
}

// GetSummary referral code, reward state and referrals of a user
func (s *ReferralService) GetSummary(userID uint) (*ReferralSummary, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	reward, err := s.CheckReferralReward(userID)
	if err != nil {
		return nil, err
	}
	referrals, err := s.referralRepo.ListByReferrer(userID)
	if err != nil {
		return nil, err
	}
	return &ReferralSummary{
		Code:      user.ReferralCode,
		Reward:    *reward,
		Referrals: referrals,
	}, nil
}

func generateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
