package public

import (
	"strconv"
	"strings"

	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/http/response"
	"github.com/sela-fruits/sela-store/internal/models"

	"github.com/gin-gonic/gin"
)

// GetProducts lists available products with their current price
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	search := strings.TrimSpace(c.Query("search"))

	items, total, err := h.ProductService.ListPublic(c.Request.Context(), search, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetProduct product detail
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	item, err := h.ProductService.GetPublic(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, item)
}

// GetDeliveryQuote delivery fee for a subtotal and address
func (h *Handler) GetDeliveryQuote(c *gin.Context) {
	subtotal, err := models.ParseMoney(c.DefaultQuery("subtotal", "0"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid subtotal", nil)
		return
	}
	quote, err := h.OrderService.QuoteDelivery(subtotal, c.Query("address"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, quote)
}
