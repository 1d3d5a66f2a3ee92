package shared

import (
	"errors"

	"github.com/sela-fruits/sela-store/internal/http/response"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog logger carrying the request id.
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError writes an error envelope and logs the underlying error when present.
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}

type errorKindRule struct {
	kind error
	code int
}

var errorKindRules = []errorKindRule{
	{kind: service.ErrInvalidInput, code: response.CodeBadRequest},
	{kind: service.ErrUnauthorized, code: response.CodeUnauthorized},
	{kind: service.ErrNotFound, code: response.CodeNotFound},
	{kind: service.ErrConflict, code: response.CodeConflict},
	{kind: service.ErrUpstream, code: response.CodeBadGateway},
}

// StatusForError maps a service error kind to an HTTP status
func StatusForError(err error) int {
	for _, rule := range errorKindRules {
		if errors.Is(err, rule.kind) {
			return rule.code
		}
	}
	return response.CodeInternal
}

// RespondServiceError maps a service error by kind. Classified errors expose
// their message, anything else is logged and hidden behind a generic 500.
func RespondServiceError(c *gin.Context, err error) {
	code := StatusForError(err)
	if code == response.CodeInternal {
		RespondError(c, code, "internal server error", err)
		return
	}
	if code == response.CodeBadGateway {
		RequestLog(c).Warnw("handler_upstream_error", "error", err)
	}
	response.Error(c, code, err.Error())
}
