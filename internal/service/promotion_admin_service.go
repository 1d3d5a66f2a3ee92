package service

import (
	"context"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/cache"
	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"
)

// CreateFlashSaleInput admin flash sale input
type CreateFlashSaleInput struct {
	ProductID uint
	SalePrice models.Money
	StartTime time.Time
	EndTime   time.Time
	IsActive  *bool
}

// CreatePromotionInput admin promotion input
type CreatePromotionInput struct {
	Name            string
	Type            string
	DiscountPercent models.Money
	MinOrderAmount  models.Money
	StartDate       time.Time
	EndDate         time.Time
	IsActive        *bool
}

// CreateFlashSale validates the sale against the product's current price
func (s *PromotionService) CreateFlashSale(ctx context.Context, input CreateFlashSaleInput) (*models.FlashSale, error) {
	if input.ProductID == 0 || !input.SalePrice.IsPositive() {
		return nil, ErrFlashSaleInvalid
	}
	if input.StartTime.IsZero() || !input.StartTime.Before(input.EndTime) {
		return nil, ErrFlashSaleInvalid
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !input.SalePrice.LessThan(product.CurrentPrice().Decimal) {
		return nil, ErrFlashSaleInvalid
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	sale := &models.FlashSale{
		ProductID: input.ProductID,
		SalePrice: models.NewMoneyFromDecimal(input.SalePrice.Decimal),
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime.UTC(),
		IsActive:  isActive,
	}
	if err := s.flashSaleRepo.Create(sale); err != nil {
		return nil, err
	}
	s.invalidateFlashSale(ctx, sale.ProductID)
	return sale, nil
}

// DisableFlashSale switches a sale off; disabling twice is harmless
func (s *PromotionService) DisableFlashSale(ctx context.Context, id uint) (*models.FlashSale, error) {
	sale, err := s.flashSaleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrFlashSaleNotFound
	}
	if sale.IsActive {
		sale.IsActive = false
		if err := s.flashSaleRepo.Update(sale); err != nil {
			return nil, err
		}
	}
	s.invalidateFlashSale(ctx, sale.ProductID)
	return sale, nil
}

// CreatePromotion validates percent range and window
func (s *PromotionService) CreatePromotion(input CreatePromotionInput) (*models.Promotion, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPromotionInvalid
	}
	promotionType := strings.ToUpper(strings.TrimSpace(input.Type))
	switch promotionType {
	case constants.PromotionTypeFlashSale, constants.PromotionTypeRamadanDelivery, constants.PromotionTypeReferral:
	default:
		return nil, ErrPromotionInvalid
	}
	if input.DiscountPercent.IsNegative() || input.DiscountPercent.GreaterThan(hundred) {
		return nil, ErrPromotionInvalid
	}
	if input.MinOrderAmount.IsNegative() {
		return nil, ErrPromotionInvalid
	}
	if input.StartDate.IsZero() || !input.StartDate.Before(input.EndDate) {
		return nil, ErrPromotionInvalid
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	promotion := &models.Promotion{
		Name:            name,
		Type:            promotionType,
		DiscountPercent: models.NewMoneyFromDecimal(input.DiscountPercent.Decimal),
		MinOrderAmount:  models.NewMoneyFromDecimal(input.MinOrderAmount.Decimal),
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
		IsActive:        isActive,
	}
	if err := s.promotionRepo.Create(promotion); err != nil {
		return nil, err
	}
	return promotion, nil
}

// SetPromotionActive toggles a promotion
func (s *PromotionService) SetPromotionActive(id uint, active bool) (*models.Promotion, error) {
	promotion, err := s.promotionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	if promotion.IsActive == active {
		return promotion, nil
	}
	promotion.IsActive = active
	if err := s.promotionRepo.Update(promotion); err != nil {
		return nil, err
	}
	return promotion, nil
}

func (s *PromotionService) invalidateFlashSale(ctx context.Context, productID uint) {
	if err := cache.InvalidateFlashSalePrice(ctx, productID); err != nil {
		logger.Warnw("flash_sale_cache_invalidate_failed", "product_id", productID, "error", err)
	}
}
