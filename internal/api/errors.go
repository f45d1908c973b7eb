package api

import (
	"net/http"

	"lending-core/internal/common/errors"

	"github.com/gin-gonic/gin"
)

// writeError maps structured error codes onto HTTP statuses and renders
// the error body in the standard shape. Retryable codes advertise a
// Retry-After hint so callers can distinguish transient failures from
// business rejections.
func writeError(c *gin.Context, err error) {
	if stdErr, ok := err.(*errors.StandardError); ok {
		if errors.IsRetryableErrorCode(stdErr.Code) {
			c.Header("Retry-After", "1")
		}
		c.JSON(statusForCode(stdErr.Code), gin.H{
			"error":    stdErr,
			"category": errors.GetErrorCategory(stdErr.Code),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":    "INTERNAL_ERROR",
		"message": err.Error(),
	}})
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidApplicationData,
		errors.ErrCodeInvalidProductData:
		return http.StatusBadRequest
	case errors.ErrCodeApplicationNotFound,
		errors.ErrCodeMailboxNotFound,
		errors.ErrCodeExtensionNotFound,
		errors.ErrCodeVoicemailNotFound:
		return http.StatusNotFound
	case errors.ErrCodeExtensionSpaceExhausted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
