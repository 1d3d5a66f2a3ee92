package public

import (
	"strings"

	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/http/response"
	"github.com/sela-fruits/sela-store/internal/repository"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest order line
type OrderItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// PreviewOrderRequest price quote request
type PreviewOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	DeliveryAddress string             `json:"deliveryAddress"`
}

// CreateOrderRequest checkout request
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	DeliveryAddress string             `json:"deliveryAddress"`
	Notes           string             `json:"notes"`
}

func toServiceItems(items []OrderItemRequest) []service.CreateOrderItem {
	result := make([]service.CreateOrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, service.CreateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return result
}

// PreviewOrder prices a cart without placing it
func (h *Handler) PreviewOrder(c *gin.Context) {
	var req PreviewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	quote, err := h.OrderService.PreviewOrder(c.Request.Context(), optionalUserID(c), service.PreviewOrderInput{
		Items:           toServiceItems(req.Items),
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, quote)
}

// CreateOrder places an order for a guest or a signed-in customer
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	result, err := h.OrderService.CreateOrder(c.Request.Context(), optionalUserID(c), service.CreateOrderInput{
		Items:           toServiceItems(req.Items),
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// GetOrder returns an order to its owner, or to a guest who knows the checkout email
func (h *Handler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")
	if uid := optionalUserID(c); uid != nil {
		order, err := h.OrderService.GetUserOrder(c.Request.Context(), *uid, orderID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.Success(c, order)
		return
	}
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		respondError(c, response.CodeBadRequest, "email is required to look up a guest order", nil)
		return
	}
	order, err := h.OrderService.GetGuestOrder(c.Request.Context(), orderID, email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListMyOrders orders of the signed-in customer
func (h *Handler) ListMyOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ReadPagination(c)
	orders, total, err := h.OrderService.ListUserOrders(c.Request.Context(), uid, repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}
