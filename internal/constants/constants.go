package constants

// Order status
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment status
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
)

// Promotion types
const (
	PromotionTypeFlashSale       = "FLASH_SALE"
	PromotionTypeRamadanDelivery = "RAMADAN_DELIVERY"
	PromotionTypeReferral        = "REFERRAL"
)

// Referral status
const (
	ReferralStatusPending   = "PENDING"
	ReferralStatusCompleted = "COMPLETED"
	ReferralStatusRewarded  = "REWARDED"
)

// Delivery zones
const (
	DeliveryZoneFree = "ZONE_1_FREE"
	DeliveryZoneHalf = "ZONE_2_HALF"
	DeliveryZoneFull = "ZONE_3_FULL"
)

// Price sources frozen on order items
const (
	PriceSourceFlashSale = "flash_sale"
	PriceSourceDiscount  = "discount"
	PriceSourceBase      = "base"
)

// Queue names
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Task types
const (
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskReferralComplete   = "referral:complete"
)

// Order event types
const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderStatusChanged = "order.status_changed"
)

// Staff roles
const (
	StaffRoleOwner        = "owner"
	StaffRoleDispatcher   = "dispatcher"
	StaffRoleMerchandiser = "merchandiser"
)

// DefaultCurrency storefront settlement currency
const DefaultCurrency = "NGN"
