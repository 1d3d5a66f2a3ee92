package repository

import "time"

// ProductListFilter product list filter
type ProductListFilter struct {
	Page          int
	PageSize      int
	Search        string
	OnlyAvailable bool
}

// OrderListFilter order list filter
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        *uint
	Status        string
	PaymentStatus string
	CustomerEmail string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}
