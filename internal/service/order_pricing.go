package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sela-fruits/sela-store/internal/constants"
	"github.com/sela-fruits/sela-store/internal/models"

	"github.com/shopspring/decimal"
)

// QuoteLine priced order line
type QuoteLine struct {
	ProductID   uint         `json:"productId"`
	ProductName string       `json:"productName"`
	Quantity    int          `json:"quantity"`
	UnitPrice   models.Money `json:"unitPrice"`
	PriceSource string       `json:"priceSource"`
	LineTotal   models.Money `json:"lineTotal"`
	FlashSaleID *uint        `json:"flashSaleId,omitempty"`
}

// OrderQuote full price breakdown shared by preview and create
type OrderQuote struct {
	Lines                   []QuoteLine  `json:"items"`
	Subtotal                models.Money `json:"subtotal"`
	ReferralApplied         bool         `json:"referralApplied"`
	ReferralDiscountPercent models.Money `json:"referralDiscountPercent"`
	DiscountAmount          models.Money `json:"discountAmount"`
	BaseDeliveryFee         models.Money `json:"baseDeliveryFee"`
	DeliveryFee             models.Money `json:"deliveryFee"`
	DeliveryDiscount        models.Money `json:"deliveryDiscount"`
	DeliveryZone            string       `json:"deliveryZone"`
	TotalAmount             models.Money `json:"totalAmount"`
	Currency                string       `json:"currency"`
}

// withoutReferral drops the referral discount and recomputes the total
func (q OrderQuote) withoutReferral() OrderQuote {
	q.ReferralApplied = false
	q.ReferralDiscountPercent = models.NewMoneyFromInt(0)
	q.DiscountAmount = models.NewMoneyFromInt(0)
	q.TotalAmount = orderTotal(q.Subtotal, q.DiscountAmount, q.DeliveryFee)
	return q
}

func orderTotal(subtotal, discount, deliveryFee models.Money) models.Money {
	return models.NewMoneyFromDecimal(subtotal.Sub(discount.Decimal).Add(deliveryFee.Decimal))
}

// resolveUnitPrice flash sale, then discount price, then base price
func resolveUnitPrice(product *models.Product, flash *FlashSalePrice) (models.Money, string) {
	if flash != nil && flash.SalePrice.IsPositive() {
		return flash.SalePrice, constants.PriceSourceFlashSale
	}
	if product.DiscountPrice != nil && product.DiscountPrice.IsPositive() {
		return *product.DiscountPrice, constants.PriceSourceDiscount
	}
	return product.Price, constants.PriceSourceBase
}

// buildQuote validates every line against the catalog before pricing anything.
// fresh bypasses the flash-sale cache so the frozen price reflects the database at now.
func (s *OrderService) buildQuote(ctx context.Context, userID *uint, items []CreateOrderItem, address string, now time.Time, fresh bool) (*OrderQuote, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, item.ProductID)
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: %s has %d %s left", ErrInsufficientStock, product.Name, product.Stock, product.Unit)
		}
		minOrder := product.MinOrder
		if minOrder < 1 {
			minOrder = 1
		}
		if item.Quantity < minOrder {
			return nil, fmt.Errorf("%w: %s requires at least %d", ErrBelowMinOrder, product.Name, minOrder)
		}
	}

	var flashPrices map[uint]FlashSalePrice
	if fresh {
		flashPrices, err = s.promotionService.ResolveFlashSalePrices(ids, now)
	} else {
		flashPrices, err = s.promotionService.GetFlashSalePrices(ctx, ids, now)
	}
	if err != nil {
		return nil, err
	}

	quote := &OrderQuote{
		Lines:    make([]QuoteLine, 0, len(items)),
		Currency: s.settings.Currency,
	}
	subtotal := decimal.Zero
	for _, item := range items {
		product := productMap[item.ProductID]
		var flash *FlashSalePrice
		if price, ok := flashPrices[product.ID]; ok {
			flash = &price
		}
		unitPrice, source := resolveUnitPrice(product, flash)
		lineTotal := models.NewMoneyFromDecimal(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		line := QuoteLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   models.NewMoneyFromDecimal(unitPrice.Decimal),
			PriceSource: source,
			LineTotal:   lineTotal,
		}
		if source == constants.PriceSourceFlashSale {
			id := flash.FlashSaleID
			line.FlashSaleID = &id
		}
		quote.Lines = append(quote.Lines, line)
		subtotal = subtotal.Add(lineTotal.Decimal)
	}
	quote.Subtotal = models.NewMoneyFromDecimal(subtotal)

	quote.ReferralDiscountPercent = models.NewMoneyFromInt(0)
	quote.DiscountAmount = models.NewMoneyFromInt(0)
	if userID != nil && *userID != 0 {
		reward, err := s.referralService.CheckReferralReward(*userID)
		if err != nil {
			return nil, err
		}
		if reward.Eligible {
			quote.ReferralApplied = true
			quote.ReferralDiscountPercent = reward.DiscountPercent
			quote.DiscountAmount = models.NewMoneyFromDecimal(subtotal.Mul(reward.DiscountPercent.Decimal).Div(hundred))
		}
	}

	delivery, err := s.promotionService.CalculateDeliveryDiscount(quote.Subtotal, s.settings.BaseDeliveryFee, address, now)
	if err != nil {
		return nil, err
	}
	quote.BaseDeliveryFee = delivery.BaseFee
	quote.DeliveryFee = delivery.DeliveryFee
	quote.DeliveryDiscount = delivery.DiscountAmount
	quote.DeliveryZone = delivery.Zone
	quote.TotalAmount = orderTotal(quote.Subtotal, quote.DiscountAmount, quote.DeliveryFee)
	return quote, nil
}

// QuoteDelivery delivery fee for a subtotal and address under the active promotion
func (s *OrderService) QuoteDelivery(subtotal models.Money, address string) (*DeliveryDiscount, error) {
	if subtotal.IsNegative() {
		return nil, fmt.Errorf("%w: subtotal must not be negative", ErrInvalidInput)
	}
	return s.promotionService.CalculateDeliveryDiscount(subtotal, s.settings.BaseDeliveryFee, address, time.Now())
}
