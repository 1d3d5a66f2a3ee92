package models

import (
	"time"

	"gorm.io/gorm"
)

// Promotion seasonal discount rule; RAMADAN_DELIVERY drives the delivery fee waiver
type Promotion struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                        // primary key
	Name            string         `gorm:"type:varchar(120);not null" json:"name"`                      // display name
	Type            string         `gorm:"type:varchar(32);not null;index" json:"type"`                 // FLASH_SALE/RAMADAN_DELIVERY/REFERRAL
	DiscountPercent Money          `gorm:"type:decimal(5,2);not null;default:0" json:"discountPercent"` // 0-100
	MinOrderAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"minOrderAmount"` // subtotal gate
	StartDate       time.Time      `gorm:"not null;index" json:"startDate"`                             // window start (inclusive)
	EndDate         time.Time      `gorm:"not null;index" json:"endDate"`                               // window end (exclusive)
	IsActive        bool           `gorm:"not null;default:true;index" json:"isActive"`                 // manual switch
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`                                      // created at
	UpdatedAt       time.Time      `json:"updatedAt"`                                                   // updated at
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                              // soft delete
}

// TableName table name
func (Promotion) TableName() string {
	return "promotions"
}

// BeforeSave stores the window in UTC.
func (p *Promotion) BeforeSave(_ *gorm.DB) error {
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	return nil
}
