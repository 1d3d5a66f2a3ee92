package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	flashSalePriceTTL     = 30 * time.Second
	flashSalePriceMissTTL = 15 * time.Second
)

// FlashSalePrice cached flash-sale lookup for one product.
// Found=false caches the absence of an active sale.
type FlashSalePrice struct {
	ProductID   uint      `json:"product_id"`
	Found       bool      `json:"found"`
	FlashSaleID uint      `json:"flash_sale_id,omitempty"`
	SalePrice   string    `json:"sale_price,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
}

func flashSalePriceKey(productID uint) string {
	return fmt.Sprintf("flash_sale:product:%d", productID)
}

// GetFlashSalePrice reads the cached lookup; entries past their sale end are treated as misses
func GetFlashSalePrice(ctx context.Context, productID uint, now time.Time) (*FlashSalePrice, bool, error) {
	if productID == 0 {
		return nil, false, nil
	}
	var entry FlashSalePrice
	hit, err := GetJSON(ctx, flashSalePriceKey(productID), &entry)
	if err != nil || !hit {
		return nil, false, err
	}
	if entry.Found && !now.Before(entry.EndTime) {
		return nil, false, nil
	}
	return &entry, true, nil
}

// SetFlashSalePrice stores a lookup; a hit never outlives its sale window
func SetFlashSalePrice(ctx context.Context, entry *FlashSalePrice, now time.Time) error {
	if entry == nil || entry.ProductID == 0 {
		return nil
	}
	ttl := flashSalePriceMissTTL
	if entry.Found {
		ttl = flashSalePriceTTL
		if remaining := entry.EndTime.Sub(now); remaining < ttl {
			ttl = remaining
		}
		if ttl <= 0 {
			return nil
		}
	}
	return SetJSON(ctx, flashSalePriceKey(entry.ProductID), entry, ttl)
}

// InvalidateFlashSalePrice drops the cached lookup after an admin change
func InvalidateFlashSalePrice(ctx context.Context, productIDs ...uint) error {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id == 0 {
			continue
		}
		keys = append(keys, flashSalePriceKey(id))
	}
	return Del(ctx, keys...)
}
