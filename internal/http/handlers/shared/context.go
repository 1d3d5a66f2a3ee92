package shared

import (
	"github.com/sela-fruits/sela-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares
const (
	UserIDKey    = "user_id"
	StaffIDKey   = "staff_id"
	StaffRoleKey = "staff_role"
)

// GetContextUint reads a uint set by middleware and responds on failure.
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "authentication required", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, "authentication required", nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, "invalid identity", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, "invalid identity", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, "identity has an unexpected type", nil)
		return 0, false
	}
}

// OptionalUserID returns the customer id when an identity token was presented.
func OptionalUserID(c *gin.Context) *uint {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return nil
	}
	id, ok := value.(uint)
	if !ok || id == 0 {
		return nil
	}
	return &id
}
