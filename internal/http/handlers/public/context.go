package public

import (
	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, handlershared.UserIDKey)
}

func optionalUserID(c *gin.Context) *uint {
	return handlershared.OptionalUserID(c)
}
