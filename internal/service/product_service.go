package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// ProductService catalog reads with effective prices
type ProductService struct {
	repo             repository.ProductRepository
	promotionService *PromotionService
}

// NewProductService creates the catalog service
func NewProductService(repo repository.ProductRepository, promotionService *PromotionService) *ProductService {
	return &ProductService{repo: repo, promotionService: promotionService}
}

// CatalogProduct product with the price a customer pays right now
type CatalogProduct struct {
	models.Product
	EffectivePrice models.Money    `json:"effectivePrice"`
	PriceSource    string          `json:"priceSource"`
	FlashSale      *FlashSalePrice `json:"flashSale,omitempty"`
}

// CreateProductInput catalog entry input
type CreateProductInput struct {
	Name          string
	Slug          string
	Description   string
	Unit          string
	ImageURL      string
	Price         models.Money
	DiscountPrice *models.Money
	Stock         int
	MinOrder      int
	IsAvailable   *bool
}

// ListPublic lists available products with flash-sale prices applied
func (s *ProductService) ListPublic(ctx context.Context, search string, page, pageSize int) ([]CatalogProduct, int64, error) {
	products, total, err := s.repo.List(repository.ProductListFilter{
		Page:          page,
		PageSize:      pageSize,
		Search:        search,
		OnlyAvailable: true,
	})
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}
	prices, err := s.promotionService.GetFlashSalePrices(ctx, ids, time.Now())
	if err != nil {
		return nil, 0, err
	}
	items := make([]CatalogProduct, 0, len(products))
	for i := range products {
		var flash *FlashSalePrice
		if price, ok := prices[products[i].ID]; ok {
			flash = &price
		}
		items = append(items, toCatalogProduct(&products[i], flash))
	}
	return items, total, nil
}

// GetPublic returns an available product or ErrProductNotFound
func (s *ProductService) GetPublic(ctx context.Context, id uint) (*CatalogProduct, error) {
	if id == 0 {
		return nil, ErrProductNotFound
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsAvailable {
		return nil, ErrProductNotFound
	}
	flash, err := s.promotionService.GetFlashSalePrice(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	item := toCatalogProduct(product, flash)
	return &item, nil
}

// Create adds a catalog entry
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || !input.Price.IsPositive() || input.Stock < 0 {
		return nil, fmt.Errorf("%w: product name, price and stock are required", ErrInvalidInput)
	}
	if input.DiscountPrice != nil && (input.DiscountPrice.IsNegative() || !input.DiscountPrice.LessThan(input.Price.Decimal)) {
		return nil, fmt.Errorf("%w: discount price must be below the base price", ErrInvalidInput)
	}
	slug := slugify(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "kg"
	}
	minOrder := input.MinOrder
	if minOrder < 1 {
		minOrder = 1
	}
	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}
	product := &models.Product{
		Name:          name,
		Slug:          slug,
		Description:   strings.TrimSpace(input.Description),
		Unit:          unit,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		MinOrder:      minOrder,
		IsAvailable:   available,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

func toCatalogProduct(product *models.Product, flash *FlashSalePrice) CatalogProduct {
	price, source := resolveUnitPrice(product, flash)
	item := CatalogProduct{
		Product:        *product,
		EffectivePrice: models.NewMoneyFromDecimal(price.Decimal),
		PriceSource:    source,
	}
	if flash != nil && flash.SalePrice.IsPositive() {
		item.FlashSale = flash
	}
	return item
}

func slugify(raw string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "-")
	return strings.Trim(slug, "-")
}
