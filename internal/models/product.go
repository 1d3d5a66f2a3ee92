package models

import (
	"time"

	"gorm.io/gorm"
)

// Product catalog entry
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                               // primary key
	Name          string         `gorm:"type:varchar(120);not null" json:"name"`             // display name
	Slug          string         `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"` // url key
	Description   string         `gorm:"type:text" json:"description"`                       // description
	Unit          string         `gorm:"type:varchar(32);not null;default:'kg'" json:"unit"` // selling unit (kg/basket/piece)
	ImageURL      string         `gorm:"type:varchar(500)" json:"imageUrl"`                  // cover image
	Price         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // base price
	DiscountPrice *Money         `gorm:"type:decimal(20,2)" json:"discountPrice"`            // optional standing discount
	Stock         int            `gorm:"not null;default:0;check:stock >= 0" json:"stock"`   // units on hand, never negative
	MinOrder      int            `gorm:"not null;default:1" json:"minOrder"`                 // minimum quantity per line
	IsAvailable   bool           `gorm:"not null;default:true;index" json:"isAvailable"`     // listed for sale
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`                             // created at
	UpdatedAt     time.Time      `json:"updatedAt"`                                          // updated at
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                     // soft delete
}

// TableName table name
func (Product) TableName() string {
	return "products"
}

// CurrentPrice is the catalog price without flash sales: the discount price when set, else the base price.
func (p *Product) CurrentPrice() Money {
	if p == nil {
		return Money{}
	}
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.Price
}
