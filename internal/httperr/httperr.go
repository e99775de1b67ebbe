// Package httperr writes service errors to gin responses
package httperr

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Abort answers the request with err mapped to its status code. Internal
// errors are logged and never described to the client.
func Abort(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Request body size exceeds limit",
			"requestID": requestID,
		})
		return
	}

	status := apperr.Status(err)

	body := gin.H{
		"error":     apperr.Message(err),
		"requestID": requestID,
	}

	if field := apperr.Field(err); field != "" {
		body["field"] = field
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	} else {
		zap.L().Debug("Request rejected", zap.Error(err), zap.String("requestID", requestID))
	}

	c.AbortWithStatusJSON(status, body)
}

// Bind answers a request whose body failed to bind
func Bind(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Abort(c, err)
		return
	}

	field, msg := validators.Message(err)
	Abort(c, apperr.Validation(field, msg))
}
