package public

import (
	"io"
	"net/http"

	"github.com/sela-fruits/sela-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

const webhookBodyLimit = 1 << 20

// InitiatePayment creates or refreshes the hosted checkout link of an order
func (h *Handler) InitiatePayment(c *gin.Context) {
	session, err := h.PaymentService.InitiatePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// PaymentWebhook provider notification. The raw body is needed for the signature check.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit))
	if err != nil {
		respondError(c, response.CodeBadRequest, "webhook body is unreadable", nil)
		return
	}
	result, err := h.PaymentService.HandleWebhook(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
