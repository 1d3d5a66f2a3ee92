package service

import (
	"context"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/cache"
	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	zoneFreePercent = decimal.NewFromInt(100)
	zoneHalfPercent = decimal.NewFromInt(50)
	hundred         = decimal.NewFromInt(100)
)

// PromotionService flash-sale pricing and delivery discounts
type PromotionService struct {
	flashSaleRepo repository.FlashSaleRepository
	promotionRepo repository.PromotionRepository
	productRepo   repository.ProductRepository
	nearShopAreas []string
}

// NewPromotionService creates the promotion service
func NewPromotionService(flashSaleRepo repository.FlashSaleRepository, promotionRepo repository.PromotionRepository, productRepo repository.ProductRepository, nearShopAreas []string) *PromotionService {
	areas := make([]string, 0, len(nearShopAreas))
	for _, area := range nearShopAreas {
		normalized := strings.ToLower(strings.TrimSpace(area))
		if normalized != "" {
			areas = append(areas, normalized)
		}
	}
	return &PromotionService{
		flashSaleRepo: flashSaleRepo,
		promotionRepo: promotionRepo,
		productRepo:   productRepo,
		nearShopAreas: areas,
	}
}

// FlashSalePrice active override price for one product
type FlashSalePrice struct {
	ProductID   uint         `json:"productId"`
	FlashSaleID uint         `json:"flashSaleId"`
	SalePrice   models.Money `json:"salePrice"`
	EndTime     time.Time    `json:"endTime"`
}

// DeliveryDiscount delivery fee breakdown
type DeliveryDiscount struct {
	Zone           string       `json:"deliveryZone"`
	BaseFee        models.Money `json:"baseDeliveryFee"`
	DiscountAmount models.Money `json:"deliveryDiscount"`
	DeliveryFee    models.Money `json:"deliveryFee"`
	PromotionID    *uint        `json:"promotionId,omitempty"`
}

// GetFlashSalePrice returns nil when no sale is active for the product at now
func (s *PromotionService) GetFlashSalePrice(ctx context.Context, productID uint, now time.Time) (*FlashSalePrice, error) {
	prices, err := s.GetFlashSalePrices(ctx, []uint{productID}, now)
	if err != nil {
		return nil, err
	}
	price, ok := prices[productID]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

// GetFlashSalePrices batch lookup for catalog pages, served from the cache when possible
func (s *PromotionService) GetFlashSalePrices(ctx context.Context, productIDs []uint, now time.Time) (map[uint]FlashSalePrice, error) {
	result := make(map[uint]FlashSalePrice, len(productIDs))
	misses := make([]uint, 0, len(productIDs))
	for _, id := range uniqueIDs(productIDs) {
		entry, hit, err := cache.GetFlashSalePrice(ctx, id, now)
		if err != nil {
			logger.Warnw("flash_sale_cache_read_failed", "product_id", id, "error", err)
		}
		if !hit {
			misses = append(misses, id)
			continue
		}
		if !entry.Found {
			continue
		}
		price, err := models.ParseMoney(entry.SalePrice)
		if err != nil {
			misses = append(misses, id)
			continue
		}
		result[id] = FlashSalePrice{ProductID: id, FlashSaleID: entry.FlashSaleID, SalePrice: price, EndTime: entry.EndTime}
	}
	if len(misses) == 0 {
		return result, nil
	}

	resolved, err := s.ResolveFlashSalePrices(misses, now)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		entry := &cache.FlashSalePrice{ProductID: id}
		if price, ok := resolved[id]; ok {
			result[id] = price
			entry.Found = true
			entry.FlashSaleID = price.FlashSaleID
			entry.SalePrice = price.SalePrice.String()
			entry.EndTime = price.EndTime
		}
		if err := cache.SetFlashSalePrice(ctx, entry, now); err != nil {
			logger.Warnw("flash_sale_cache_write_failed", "product_id", id, "error", err)
		}
	}
	return result, nil
}

// ResolveFlashSalePrices reads active sales straight from the database.
// Overlapping sales resolve to the lowest sale price, then the newest sale.
func (s *PromotionService) ResolveFlashSalePrices(productIDs []uint, now time.Time) (map[uint]FlashSalePrice, error) {
	result := make(map[uint]FlashSalePrice, len(productIDs))
	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return result, nil
	}
	sales, err := s.flashSaleRepo.ListActiveByProducts(ids, now)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sale := sales[i]
		if !sale.ActiveAt(now) {
			continue
		}
		current, exists := result[sale.ProductID]
		if exists && !betterFlashSale(sale, current) {
			continue
		}
		result[sale.ProductID] = FlashSalePrice{
			ProductID:   sale.ProductID,
			FlashSaleID: sale.ID,
			SalePrice:   sale.SalePrice,
			EndTime:     sale.EndTime,
		}
	}
	return result, nil
}

func betterFlashSale(candidate models.FlashSale, current FlashSalePrice) bool {
	cmp := candidate.SalePrice.Cmp(current.SalePrice.Decimal)
	if cmp != 0 {
		return cmp < 0
	}
	return candidate.ID > current.FlashSaleID
}

// ActiveDeliveryPromotion picks the RAMADAN_DELIVERY promotion in force at now:
// highest discount percent, then newest.
func (s *PromotionService) ActiveDeliveryPromotion(now time.Time) (*models.Promotion, error) {
	promotions, err := s.promotionRepo.ListActiveByType(constants.PromotionTypeRamadanDelivery, now)
	if err != nil {
		return nil, err
	}
	var best *models.Promotion
	for i := range promotions {
		candidate := &promotions[i]
		if !candidate.IsActive || now.Before(candidate.StartDate) || !now.Before(candidate.EndDate) {
			continue
		}
		if best == nil {
			best = candidate
			continue
		}
		cmp := candidate.DiscountPercent.Cmp(best.DiscountPercent.Decimal)
		if cmp > 0 || (cmp == 0 && candidate.ID > best.ID) {
			best = candidate
		}
	}
	return best, nil
}

// CalculateDeliveryDiscount applies the active delivery promotion to the base fee.
// Without a promotion, or below its minimum order amount, the full fee is charged.
func (s *PromotionService) CalculateDeliveryDiscount(subtotal, baseFee models.Money, address string, now time.Time) (*DeliveryDiscount, error) {
	if baseFee.IsNegative() {
		baseFee = models.Money{}
	}
	result := &DeliveryDiscount{
		Zone:           constants.DeliveryZoneFull,
		BaseFee:        models.NewMoneyFromDecimal(baseFee.Decimal),
		DiscountAmount: models.NewMoneyFromInt(0),
		DeliveryFee:    models.NewMoneyFromDecimal(baseFee.Decimal),
	}
	promotion, err := s.ActiveDeliveryPromotion(now)
	if err != nil {
		return nil, err
	}
	if promotion == nil || subtotal.LessThan(promotion.MinOrderAmount.Decimal) {
		return result, nil
	}

	result.PromotionID = &promotion.ID
	result.Zone = s.ClassifyDeliveryZone(address)
	percent := zoneHalfPercent
	if result.Zone == constants.DeliveryZoneFree {
		percent = zoneFreePercent
	}
	discount := models.NewMoneyFromDecimal(baseFee.Mul(percent).Div(hundred))
	result.DiscountAmount = discount
	result.DeliveryFee = models.NewMoneyFromDecimal(baseFee.Sub(discount.Decimal))
	return result, nil
}

// ClassifyDeliveryZone matches the address against the near-shop areas.
// Only meaningful while a delivery promotion applies.
func (s *PromotionService) ClassifyDeliveryZone(address string) string {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" {
		return constants.DeliveryZoneHalf
	}
	for _, area := range s.nearShopAreas {
		if strings.Contains(normalized, area) {
			return constants.DeliveryZoneFree
		}
	}
	return constants.DeliveryZoneHalf
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
