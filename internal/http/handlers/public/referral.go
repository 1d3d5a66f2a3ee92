package public

import (
	"github.com/sela-fruits/sela-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ApplyReferralRequest referral code submitted by a new customer
type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// GetMyReferral referral code, reward progress and referrals
func (h *Handler) GetMyReferral(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.ReferralService.GetSummary(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// EnsureMyReferralCode issues the customer's referral code once
func (h *Handler) EnsureMyReferralCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	code, err := h.ReferralService.EnsureReferralCode(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"referralCode": code})
}

// ApplyReferralCode links the customer to the friend who referred them
func (h *Handler) ApplyReferralCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "referral code is required", nil)
		return
	}
	referral, err := h.ReferralService.ApplyReferralCode(uid, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, referral)
}
