package models

import "time"

// Order customer order header
type Order struct {
	ID                    string     `gorm:"primarykey;type:varchar(32)" json:"id"`                         // SELA-XXXX-XXXX-XXXX
	UserID                *uint      `gorm:"index" json:"userId"`                                           // nil for guest checkout
	CustomerName          string     `gorm:"type:varchar(120);not null" json:"customerName"`                // customer name
	CustomerEmail         string     `gorm:"type:varchar(255);not null;index" json:"customerEmail"`         // customer email
	CustomerPhone         string     `gorm:"type:varchar(32);not null" json:"customerPhone"`                // customer phone
	DeliveryAddress       string     `gorm:"type:text;not null" json:"deliveryAddress"`                     // delivery address
	Notes                 string     `gorm:"type:text" json:"notes,omitempty"`                              // customer notes
	Currency              string     `gorm:"type:varchar(8);not null" json:"currency"`                      // settlement currency
	Subtotal              Money      `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`         // sum of line totals
	DiscountAmount        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"discountAmount"`   // referral discount
	DeliveryFee           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"deliveryFee"`      // fee after delivery discount
	DeliveryDiscount      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"deliveryDiscount"` // waived part of the base fee
	DeliveryZone          string     `gorm:"type:varchar(20);not null" json:"deliveryZone"`                 // ZONE_1_FREE/ZONE_2_HALF/ZONE_3_FULL
	TotalAmount           Money      `gorm:"type:decimal(20,2);not null;default:0" json:"totalAmount"`      // subtotal - discount + delivery fee
	Status                string     `gorm:"type:varchar(20);not null;index" json:"status"`                 // order status
	PaymentStatus         string     `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`          // PENDING/SUCCESS
	PaymentRef            *string    `gorm:"type:varchar(64);uniqueIndex" json:"paymentRef,omitempty"`      // provider tx_ref
	PaymentLink           string     `gorm:"type:varchar(500)" json:"paymentLink,omitempty"`                // hosted checkout link
	ProviderTransactionID string     `gorm:"type:varchar(64)" json:"providerTransactionId,omitempty"`       // provider transaction id
	CancelReason          string     `gorm:"type:varchar(255)" json:"cancelReason,omitempty"`               // cancel reason
	ExpiresAt             *time.Time `gorm:"index" json:"expiresAt,omitempty"`                              // unpaid expiry
	PaidAt                *time.Time `gorm:"index" json:"paidAt,omitempty"`                                 // paid at
	DeliveredAt           *time.Time `json:"deliveredAt,omitempty"`                                         // delivered at
	CancelledAt           *time.Time `json:"cancelledAt,omitempty"`                                         // cancelled at
	CreatedAt             time.Time  `gorm:"index" json:"createdAt"`                                        // created at
	UpdatedAt             time.Time  `json:"updatedAt"`                                                     // updated at

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName table name
func (Order) TableName() string {
	return "orders"
}
