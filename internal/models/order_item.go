package models

import "time"

// OrderItem immutable order line
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                           // primary key
	OrderID     string    `gorm:"type:varchar(32);not null;index" json:"orderId"` // owning order
	ProductID   uint      `gorm:"not null;index" json:"productId"`                // product
	ProductName string    `gorm:"type:varchar(120);not null" json:"productName"`  // name snapshot
	Quantity    int       `gorm:"not null" json:"quantity"`                       // ordered quantity
	PriceAtTime Money     `gorm:"type:decimal(20,2);not null" json:"priceAtTime"` // frozen unit price
	PriceSource string    `gorm:"type:varchar(20);not null" json:"priceSource"`   // flash_sale/discount/base
	LineTotal   Money     `gorm:"type:decimal(20,2);not null" json:"lineTotal"`   // unit price x quantity
	CreatedAt   time.Time `json:"createdAt"`                                      // created at
}

// TableName table name
func (OrderItem) TableName() string {
	return "order_items"
}
