package admin

import (
	"time"

	"github.com/sela-fruits/sela-store/internal/http/response"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateFlashSaleRequest flash sale request
type CreateFlashSaleRequest struct {
	ProductID uint         `json:"productId" binding:"required"`
	SalePrice models.Money `json:"salePrice"`
	StartTime time.Time    `json:"startTime" binding:"required"`
	EndTime   time.Time    `json:"endTime" binding:"required"`
	IsActive  *bool        `json:"isActive"`
}

// CreatePromotionRequest delivery promotion request
type CreatePromotionRequest struct {
	Name            string       `json:"name" binding:"required"`
	Type            string       `json:"type" binding:"required"`
	DiscountPercent models.Money `json:"discountPercent"`
	MinOrderAmount  models.Money `json:"minOrderAmount"`
	StartDate       time.Time    `json:"startDate" binding:"required"`
	EndDate         time.Time    `json:"endDate" binding:"required"`
	IsActive        *bool        `json:"isActive"`
}

// SetPromotionActiveRequest toggle request
type SetPromotionActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// CreateFlashSale schedules a flash sale
func (h *Handler) CreateFlashSale(c *gin.Context) {
	var req CreateFlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid flash sale request", nil)
		return
	}
	sale, err := h.PromotionService.CreateFlashSale(c.Request.Context(), service.CreateFlashSaleInput{
		ProductID: req.ProductID,
		SalePrice: req.SalePrice,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, sale)
}

// DisableFlashSale ends a flash sale early
func (h *Handler) DisableFlashSale(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "invalid flash sale id", nil)
		return
	}
	sale, err := h.PromotionService.DisableFlashSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, sale)
}

// CreatePromotion creates a delivery promotion
func (h *Handler) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid promotion request", nil)
		return
	}
	promotion, err := h.PromotionService.CreatePromotion(service.CreatePromotionInput{
		Name:            req.Name,
		Type:            req.Type,
		DiscountPercent: req.DiscountPercent,
		MinOrderAmount:  req.MinOrderAmount,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, promotion)
}

// SetPromotionActive enables or disables a promotion
func (h *Handler) SetPromotionActive(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "invalid promotion id", nil)
		return
	}
	var req SetPromotionActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "isActive is required", nil)
		return
	}
	promotion, err := h.PromotionService.SetPromotionActive(id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, promotion)
}
