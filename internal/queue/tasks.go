package queue

import (
	"encoding/json"

	"github.com/sela-fruits/sela-store/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderTimeoutCancel cancels an unpaid order after its expiry
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskReferralComplete marks a referred user's referral completed
	TaskReferralComplete = constants.TaskReferralComplete
)

// OrderTimeoutCancelPayload timeout cancel payload
type OrderTimeoutCancelPayload struct {
	OrderID string `json:"order_id"`
}

// ReferralCompletePayload referral completion payload
type ReferralCompletePayload struct {
	UserID  uint   `json:"user_id"`
	OrderID string `json:"order_id"`
}

// NewOrderTimeoutCancelTask builds the timeout cancel task
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewReferralCompleteTask builds the referral completion task
func NewReferralCompleteTask(payload ReferralCompletePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralComplete, body), nil
}
