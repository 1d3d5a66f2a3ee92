package admin

import (
	"strings"

	"github.com/sela-fruits/sela-store/internal/constants"
	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/http/response"
	"github.com/sela-fruits/sela-store/internal/models"
	"github.com/sela-fruits/sela-store/internal/repository"

	"github.com/gin-gonic/gin"
)

const staffCancelReason = "cancelled_by_staff"

// UpdateOrderStatusRequest status change request
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// GetAdminOrders lists orders with filters
func (h *Handler) GetAdminOrders(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_from must be RFC3339", nil)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_to must be RFC3339", nil)
		return
	}

	orders, total, err := h.OrderService.ListOrders(c.Request.Context(), repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		CustomerEmail: strings.TrimSpace(c.Query("email")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetAdminOrder order detail
func (h *Handler) GetAdminOrder(c *gin.Context) {
	order, err := h.OrderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatus moves an order along the fulfilment flow or cancels it
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "status is required", nil)
		return
	}
	ctx := c.Request.Context()
	status := strings.ToUpper(strings.TrimSpace(req.Status))

	var (
		order *models.Order
		err   error
	)
	if status == constants.OrderStatusCancelled {
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = staffCancelReason
		}
		order, err = h.OrderService.CancelOrder(ctx, c.Param("id"), reason)
	} else {
		order, err = h.OrderService.UpdateStatus(ctx, c.Param("id"), status)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_status_updated",
		"order_id", order.ID,
		"status", order.Status,
		"staff_id", c.GetUint(handlershared.StaffIDKey),
	)
	response.Success(c, order)
}
