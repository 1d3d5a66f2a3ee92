package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every service error wraps exactly one of them so the
// transport layer can map by kind with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream error")
)

func kindError(kind error, message string) error {
	return fmt.Errorf("%w: %s", kind, message)
}

// Catalog and order validation
var (
	ErrOrderItemsEmpty     = kindError(ErrInvalidInput, "order must contain at least one item")
	ErrInvalidOrderItem    = kindError(ErrInvalidInput, "order item is invalid")
	ErrCustomerInfoInvalid = kindError(ErrInvalidInput, "customer details are incomplete")
	ErrInvalidEmail        = kindError(ErrInvalidInput, "customer email is invalid")
	ErrProductNotFound     = kindError(ErrNotFound, "product not found")
	ErrProductUnavailable  = kindError(ErrInvalidInput, "product is not available")
	ErrInsufficientStock   = kindError(ErrInvalidInput, "insufficient stock")
	ErrBelowMinOrder       = kindError(ErrInvalidInput, "quantity below minimum order")
	ErrStockConflict       = kindError(ErrConflict, "stock changed while placing the order")
	ErrOrderIDExhausted    = errors.New("could not allocate a unique order id")
)

// Order lifecycle
var (
	ErrOrderNotFound      = kindError(ErrNotFound, "order not found")
	ErrOrderStatusUnknown = kindError(ErrInvalidInput, "unknown order status")
	ErrOrderStatusInvalid = kindError(ErrConflict, "order status transition not allowed")
	ErrOrderAlreadyPaid   = kindError(ErrConflict, "order is already paid")
	ErrOrderCancelled     = kindError(ErrConflict, "order is cancelled")
	ErrOrderExpired       = kindError(ErrConflict, "order payment window has expired")
)

// Payment
var (
	ErrPaymentNotConfigured      = kindError(ErrUpstream, "payment provider is not configured")
	ErrPaymentProviderFailed     = kindError(ErrUpstream, "payment provider request failed")
	ErrWebhookSignatureInvalid   = kindError(ErrUnauthorized, "webhook signature mismatch")
	ErrWebhookPayloadInvalid     = kindError(ErrInvalidInput, "webhook payload is invalid")
	ErrPaymentVerificationFailed = kindError(ErrInvalidInput, "payment verification failed")
)

// Referral
var (
	ErrUserNotFound          = kindError(ErrNotFound, "user not found")
	ErrReferralCodeInvalid   = kindError(ErrInvalidInput, "referral code is invalid")
	ErrReferralSelf          = kindError(ErrInvalidInput, "cannot apply your own referral code")
	ErrReferralAlreadyUsed   = kindError(ErrConflict, "user has already been referred")
	ErrReferralCodeExhausted = errors.New("could not allocate a unique referral code")
)

// Promotions
var (
	ErrFlashSaleInvalid  = kindError(ErrInvalidInput, "flash sale is invalid")
	ErrFlashSaleNotFound = kindError(ErrNotFound, "flash sale not found")
	ErrPromotionInvalid  = kindError(ErrInvalidInput, "promotion is invalid")
	ErrPromotionNotFound = kindError(ErrNotFound, "promotion not found")
)
