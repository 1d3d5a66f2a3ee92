package models

import (
	"time"

	"gorm.io/gorm"
)

// FlashSale time-boxed override price for one product
type FlashSale struct {
	ID        uint           `gorm:"primarykey" json:"id"`                         // primary key
	ProductID uint           `gorm:"not null;index" json:"productId"`              // product
	SalePrice Money          `gorm:"type:decimal(20,2);not null" json:"salePrice"` // override unit price
	StartTime time.Time      `gorm:"not null;index" json:"startTime"`              // window start (inclusive)
	EndTime   time.Time      `gorm:"not null;index" json:"endTime"`                // window end (exclusive)
	IsActive  bool           `gorm:"not null;default:true;index" json:"isActive"`  // manual switch
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`                       // created at
	UpdatedAt time.Time      `json:"updatedAt"`                                    // updated at
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                               // soft delete

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName table name
func (FlashSale) TableName() string {
	return "flash_sales"
}

// ActiveAt reports whether the sale applies at the given instant.
func (f *FlashSale) ActiveAt(now time.Time) bool {
	if f == nil || !f.IsActive {
		return false
	}
	return !now.Before(f.StartTime) && now.Before(f.EndTime)
}

// BeforeSave stores the window in UTC so text comparisons on sqlite stay ordered.
func (f *FlashSale) BeforeSave(_ *gorm.DB) error {
	f.StartTime = f.StartTime.UTC()
	f.EndTime = f.EndTime.UTC()
	return nil
}
