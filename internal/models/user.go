package models

import (
	"time"

	"gorm.io/gorm"
)

// User storefront customer. Authentication lives outside this service; the row only
// anchors referral codes and order ownership.
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                       // primary key
	Name         string         `gorm:"type:varchar(120)" json:"name"`                              // display name
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`        // email
	Phone        string         `gorm:"type:varchar(32)" json:"phone"`                              // phone
	ReferralCode *string        `gorm:"type:varchar(16);uniqueIndex" json:"referralCode,omitempty"` // code shared with friends
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`                                     // created at
	UpdatedAt    time.Time      `json:"updatedAt"`                                                  // updated at
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                             // soft delete
}

// TableName table name
func (User) TableName() string {
	return "users"
}
