package models

import "time"

// Referral referrer to referred-user link
type Referral struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                        // primary key
	ReferrerID       uint       `gorm:"not null;index:idx_referrals_referrer_status" json:"referrerId"`              // user who shared the code
	ReferredUserID   uint       `gorm:"not null;uniqueIndex" json:"referredUserId"`                                  // a user can be referred once
	Status           string     `gorm:"type:varchar(20);not null;index:idx_referrals_referrer_status" json:"status"` // PENDING/COMPLETED/REWARDED
	CompletedOrderID *string    `gorm:"type:varchar(32)" json:"completedOrderId,omitempty"`                          // first order of the referred user
	RewardedOrderID  *string    `gorm:"type:varchar(32)" json:"rewardedOrderId,omitempty"`                           // order that consumed the reward
	CreatedAt        time.Time  `gorm:"index" json:"createdAt"`                                                      // created at
	CompletedAt      *time.Time `gorm:"index" json:"completedAt,omitempty"`                                          // completed at
	RewardedAt       *time.Time `json:"rewardedAt,omitempty"`                                                        // rewarded at
}

// TableName table name
func (Referral) TableName() string {
	return "referrals"
}
